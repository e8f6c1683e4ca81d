package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"classroom_api/internal/config"
	"classroom_api/internal/model"
	"classroom_api/internal/notification"
	"classroom_api/internal/repository"
	"classroom_api/internal/utils"

	"go.uber.org/zap"
)

// OtpMailer hands an OTP email to the delivery queue.
type OtpMailer interface {
	EnqueueOtpEmail(ctx context.Context, task notification.OtpEmailTask) error
}

// OtpService issues and verifies one-time codes
type OtpService interface {
	Issue(ctx context.Context, userID int, purpose string) (string, error)
	Verify(ctx context.Context, userID int, purpose, submitted string) error
}

type otpService struct {
	repo     repository.OtpRepository
	cooldown repository.CooldownRepository
	mailer   OtpMailer
	cfg      config.OTPConfig
	log      *zap.Logger

	now      func() time.Time
	generate func(length int) (string, error)
}

// NewOtpService creates a new OtpService. cooldown may be nil to disable resend throttling.
func NewOtpService(repo repository.OtpRepository, cooldown repository.CooldownRepository, mailer OtpMailer,
	cfg config.OTPConfig, log *zap.Logger) OtpService {
	return newOtpService(repo, cooldown, mailer, cfg, log)
}

func newOtpService(repo repository.OtpRepository, cooldown repository.CooldownRepository, mailer OtpMailer,
	cfg config.OTPConfig, log *zap.Logger) *otpService {
	return &otpService{
		repo:     repo,
		cooldown: cooldown,
		mailer:   mailer,
		cfg:      cfg,
		log:      log.Named("otp"),
		now:      time.Now,
		generate: utils.GenerateNumericCode,
	}
}

func cooldownKey(userID int, purpose string) string {
	return strconv.Itoa(userID) + ":" + purpose
}

// Issue replaces any outstanding code for (user, purpose) with a fresh one and queues the email.
func (s *otpService) Issue(ctx context.Context, userID int, purpose string) (string, error) {
	if !model.ValidOtpPurpose(purpose) {
		return "", fmt.Errorf("unknown otp purpose %q", purpose)
	}

	key := cooldownKey(userID, purpose)
	throttled := false
	if s.cooldown != nil && s.cfg.ResendCooldown > 0 {
		ok, err := s.cooldown.Acquire(ctx, key, s.cfg.ResendCooldown)
		if err != nil {
			// fail open, the code itself is still bounded by TTL and attempts
			s.log.Warn("cooldown check failed", zap.Int("user_id", userID), zap.Error(err))
		} else if !ok {
			return "", ErrOtpRateLimited
		} else {
			throttled = true
		}
	}

	code, err := s.issue(ctx, userID, purpose)
	if err != nil {
		if throttled {
			if rerr := s.cooldown.Release(ctx, key); rerr != nil {
				s.log.Warn("failed to release cooldown", zap.Error(rerr))
			}
		}
		return "", err
	}
	return code, nil
}

func (s *otpService) issue(ctx context.Context, userID int, purpose string) (string, error) {
	code, err := s.generate(s.cfg.Length)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	now := s.now().UTC()
	rec := &model.OtpCode{
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  utils.HashOTP(code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	task := notification.OtpEmailTask{
		UserID:        userID,
		Code:          code,
		Purpose:       purpose,
		ExpiryMinutes: int(s.cfg.TTL / time.Minute),
	}
	// the email is queued before the replacement commits, so a queue failure keeps the previous code valid
	enqueue := func(ctx context.Context) error {
		if err := s.mailer.EnqueueOtpEmail(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue otp email: %w", err)
		}
		return nil
	}
	if err := s.repo.ReplaceActive(ctx, rec, enqueue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	s.log.Info("otp issued", zap.Int("user_id", userID), zap.String("purpose", purpose), zap.Time("expires_at", rec.ExpiresAt))
	return code, nil
}

// Verify checks the submitted code against the newest code for (user, purpose).
// A code replaced by a newer one is never compared and so fails with ErrOtpMismatch.
func (s *otpService) Verify(ctx context.Context, userID int, purpose, submitted string) error {
	err := s.repo.UpdateLatest(ctx, userID, purpose, func(code *model.OtpCode) error {
		if code == nil {
			return ErrOtpMismatch
		}
		now := s.now().UTC()

		if !utils.OTPMatches(submitted, code.CodeHash) {
			if !code.Consumed {
				code.Attempts++
				if s.cfg.MaxAttempts > 0 && code.Attempts >= s.cfg.MaxAttempts {
					code.Consumed = true
					code.ConsumedAt = &now
				}
			}
			return ErrOtpMismatch
		}
		if code.Consumed {
			return ErrOtpAlreadyConsumed
		}
		if code.IsExpired(now) {
			return ErrOtpExpired
		}

		code.Consumed = true
		code.ConsumedAt = &now
		return nil
	})

	switch {
	case err == nil:
		s.log.Info("otp verified", zap.Int("user_id", userID), zap.String("purpose", purpose))
		return nil
	case errors.Is(err, ErrOtpMismatch), errors.Is(err, ErrOtpExpired), errors.Is(err, ErrOtpAlreadyConsumed):
		s.log.Info("otp rejected", zap.Int("user_id", userID), zap.String("purpose", purpose), zap.String("reason", err.Error()))
		return err
	default:
		return fmt.Errorf("failed to verify otp: %w", err)
	}
}
