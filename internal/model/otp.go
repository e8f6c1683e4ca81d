package model

import "time"

const (
	OtpPurposeEmailVerification = "email_verification"
	OtpPurposePasswordReset     = "password_reset"
)

// OtpCode is a stored one-time code. Only the SHA-256 digest of the code is persisted.
type OtpCode struct {
	ID         int64
	UserID     int
	Purpose    string
	CodeHash   string
	Attempts   int
	Consumed   bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired reports whether the code is past its expiry at the given instant.
func (o *OtpCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

func ValidOtpPurpose(p string) bool {
	return p == OtpPurposeEmailVerification || p == OtpPurposePasswordReset
}
