package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

type otpEmailData struct {
	Subject       string
	FirstName     string
	PurposeLabel  string
	OTP           string
	ExpiryMinutes int
}

// Renderer renders the OTP email in HTML and plain text.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/otp_email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/otp_email.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	return &Renderer{html: h, text: t}, nil
}

// RenderOtp returns subject, HTML body and plain text body.
func (r *Renderer) RenderOtp(firstName, purpose, otp string, expiryMinutes int) (string, string, string, error) {
	label := purposeTitle(purpose)
	data := otpEmailData{
		Subject:       fmt.Sprintf("Your %s OTP", label),
		FirstName:     firstName,
		PurposeLabel:  strings.ToLower(label),
		OTP:           otp,
		ExpiryMinutes: expiryMinutes,
	}

	var html, text bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render html email: %w", err)
	}
	if err := r.text.Execute(&text, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render text email: %w", err)
	}
	return data.Subject, html.String(), text.String(), nil
}

// purposeTitle turns "email_verification" into "Email Verification".
func purposeTitle(purpose string) string {
	words := strings.Fields(strings.ReplaceAll(purpose, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
