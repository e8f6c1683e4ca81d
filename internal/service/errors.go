package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrForbidden          = errors.New("forbidden: user does not have permission for this action")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")

	ErrOtpExpired         = errors.New("otp expired")
	ErrOtpMismatch        = errors.New("otp does not match")
	ErrOtpAlreadyConsumed = errors.New("otp already used")
	ErrOtpRateLimited     = errors.New("otp requested too recently")
)

// ValidationError carries per-field messages, keyed by the JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{Fields: map[string][]string{}}
	v.Add(field, msg)
	return v
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}
