package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classroom_api/internal/model"
	"classroom_api/internal/repository"
	"classroom_api/internal/utils"

	"go.uber.org/zap"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Me(ctx context.Context, userID int) (*model.MeResponse, error)
	ChangePassword(ctx context.Context, userID int, req model.ChangePasswordRequest) error

	SendEmailVerification(ctx context.Context, userID int) error
	VerifyEmail(ctx context.Context, userID int, otp string) error
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, req model.PasswordResetComplete) error
}

type authService struct {
	userRepo          repository.UserRepository
	profileRepo       repository.ProfileRepository
	otp               OtpService
	jwtUtil           *utils.JWTUtil
	initialAdminEmail string
	log               *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository, otp OtpService,
	jwtUtil *utils.JWTUtil, initialAdminEmail string, log *zap.Logger) AuthService {
	return &authService{
		userRepo:          userRepo,
		profileRepo:       profileRepo,
		otp:               otp,
		jwtUtil:           jwtUtil,
		initialAdminEmail: initialAdminEmail,
		log:               log.Named("auth"),
	}
}

func checkNewPassword(v *ValidationError, field, password, confirm, confirmField string) {
	if password != confirm {
		v.Add(confirmField, "Passwords do not match.")
	}
	for _, msg := range utils.PasswordStrengthErrors(password) {
		v.Add(field, msg)
	}
}

// Register creates a new account with an empty role profile and sends an email verification code
func (s *authService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error) {
	email := utils.NormalizeEmail(req.Email)

	verr := &ValidationError{}
	if !utils.IsValidEmail(email) {
		verr.Add("email", "Enter a valid email address.")
	}
	var phone *string
	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) != "" {
		p := strings.TrimSpace(*req.PhoneNumber)
		if !utils.IsValidPhone(p) {
			verr.Add("phone_number", "Enter a valid phone number.")
		}
		phone = &p
	}
	checkNewPassword(verr, "password", req.Password, req.PasswordConfirm, "password_confirm")
	if !verr.Empty() {
		return nil, "", verr
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	userRole := req.Role
	if s.initialAdminEmail != "" && email == s.initialAdminEmail {
		userRole = model.RoleAdmin
		s.log.Info("registering initial admin", zap.String("email", email))
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  phone,
		Role:         userRole,
		Status:       model.StatusActive,
	}
	if err := s.userRepo.CreateWithProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrUserAlreadyExists
		}
		return nil, "", fmt.Errorf("failed to create user in repository: %w", err)
	}

	if _, err := s.otp.Issue(ctx, user.ID, model.OtpPurposeEmailVerification); err != nil {
		s.log.Error("failed to issue verification code after registration", zap.Int("user_id", user.ID), zap.Error(err))
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		return user, "", fmt.Errorf("user created, but failed to generate token: %w", err)
	}
	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, "", ErrAccountInactive
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

func (s *authService) Me(ctx context.Context, userID int) (*model.MeResponse, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &model.MeResponse{User: user}
	switch user.Role {
	case model.RoleTeacher:
		resp.TeacherProfile, err = s.profileRepo.FindTeacherProfile(ctx, userID)
	case model.RoleStudent:
		resp.StudentProfile, err = s.profileRepo.FindStudentProfile(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int, req model.ChangePasswordRequest) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}

	verr := &ValidationError{}
	if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		verr.Add("current_password", "Current password is incorrect.")
	}
	if req.NewPassword == req.CurrentPassword {
		verr.Add("new_password", "New password must be different from the current password.")
	}
	checkNewPassword(verr, "new_password", req.NewPassword, req.NewPasswordConfirm, "new_password_confirm")
	if !verr.Empty() {
		return verr
	}
	return s.setPassword(ctx, userID, req.NewPassword)
}

func (s *authService) SendEmailVerification(ctx context.Context, userID int) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return NewValidationError("email", "Email is already verified.")
	}
	_, err = s.otp.Issue(ctx, userID, model.OtpPurposeEmailVerification)
	return err
}

func (s *authService) VerifyEmail(ctx context.Context, userID int, otp string) error {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return err
	}
	if err := s.otp.Verify(ctx, userID, model.OtpPurposeEmailVerification, strings.TrimSpace(otp)); err != nil {
		return err
	}
	if err := s.userRepo.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// RequestPasswordReset never reveals whether the email is registered; failures are only logged.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		s.log.Error("password reset lookup failed", zap.Error(err))
		return nil
	}
	if user == nil || !user.CanLogin() {
		return nil
	}
	if _, err := s.otp.Issue(ctx, user.ID, model.OtpPurposePasswordReset); err != nil {
		s.log.Warn("password reset code not issued", zap.Int("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *authService) CompletePasswordReset(ctx context.Context, req model.PasswordResetComplete) error {
	verr := &ValidationError{}
	checkNewPassword(verr, "new_password", req.NewPassword, req.NewPasswordConfirm, "new_password_confirm")
	if !verr.Empty() {
		return verr
	}

	user, err := s.userRepo.FindByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		return fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil || !user.CanLogin() {
		return ErrOtpMismatch
	}
	if err := s.otp.Verify(ctx, user.ID, model.OtpPurposePasswordReset, strings.TrimSpace(req.OTP)); err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

func (s *authService) activeUser(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if !user.CanLogin() {
		return nil, ErrAccountInactive
	}
	return user, nil
}

func (s *authService) setPassword(ctx context.Context, userID int, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info("password changed", zap.Int("user_id", userID))
	return nil
}
