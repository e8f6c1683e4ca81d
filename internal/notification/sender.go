package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"classroom_api/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error
}

type smtpSender struct {
	from string
	log  *zap.Logger
	d    *gomail.Dialer
}

func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) (Sender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &smtpSender{from: cfg.From, log: log, d: dialer}, nil
}

func (s *smtpSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients provided for email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", bodyText)
	m.AddAlternative("text/html", bodyHTML)

	done := make(chan error, 1)
	go func() {
		done <- s.d.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.log.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

type logSender struct {
	log *zap.Logger
}

// NewLogSender returns a Sender that only logs messages. Used when SMTP is not configured.
func NewLogSender(log *zap.Logger) Sender {
	return &logSender{log: log}
}

func (s *logSender) Send(_ context.Context, to []string, subject, _, bodyText string) error {
	s.log.Info("email delivery disabled, logging message",
		zap.Strings("to", to), zap.String("subject", subject), zap.String("body", bodyText))
	return nil
}
