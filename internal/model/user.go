package model

import "time"

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusBlocked   = "blocked"
	StatusDeleted   = "deleted"
)

// User represents an account in the system
type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Do not expose password hash in JSON responses
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PhoneNumber   *string   `json:"phone_number,omitempty"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanLogin reports whether the account status allows authentication.
func (u *User) CanLogin() bool {
	return u.Status == StatusActive
}

type RegisterRequest struct {
	Email           string  `json:"email" binding:"required"`
	Password        string  `json:"password" binding:"required"`
	PasswordConfirm string  `json:"password_confirm" binding:"required"`
	FirstName       string  `json:"first_name" binding:"required,max=30"`
	LastName        string  `json:"last_name" binding:"required,max=30"`
	PhoneNumber     *string `json:"phone_number"`
	Role            string  `json:"role" binding:"required,oneof=teacher student"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type PasswordResetComplete struct {
	Email              string `json:"email" binding:"required"`
	OTP                string `json:"otp" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ValidStatus reports whether s is a known account status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBlocked, StatusDeleted:
		return true
	}
	return false
}

// UpdateUserRequest is a partial update of the caller's own account fields
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,notblank,max=30"`
	LastName    *string `json:"last_name" validate:"omitempty,notblank,max=30"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,guardian_phone"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended blocked deleted"`
}

// UserFilters narrows the admin user listing; deleted accounts are never listed
type UserFilters struct {
	Role   *string
	Status *string
	Search *string
}
