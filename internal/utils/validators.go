package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

const minPasswordLength = 8

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhone accepts 10 to 15 digits with an optional leading +
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// PasswordStrengthErrors returns one message per unmet rule, or nil if the password is acceptable.
func PasswordStrengthErrors(password string) []string {
	var msgs []string
	if len(password) < minPasswordLength {
		msgs = append(msgs, "Password must be at least 8 characters long.")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		msgs = append(msgs, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		msgs = append(msgs, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		msgs = append(msgs, "Password must contain at least one digit.")
	}
	if !special {
		msgs = append(msgs, "Password must contain at least one special character.")
	}
	return msgs
}
