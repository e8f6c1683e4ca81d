package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classroom_api/internal/model"
	"classroom_api/internal/repository"

	"go.uber.org/zap"
)

// UserService covers account management outside of authentication
type UserService interface {
	ListUsers(ctx context.Context, role string, filters model.UserFilters) ([]model.User, error)
	GetUser(ctx context.Context, targetID, userID int, role string) (*model.User, error)
	UpdateUser(ctx context.Context, targetID, userID int, role string, req *model.UpdateUserRequest) (*model.User, error)
	ChangeStatus(ctx context.Context, targetID, userID int, role string, req *model.ChangeStatusRequest) (*model.User, error)
	DeleteUser(ctx context.Context, targetID, userID int, role string) error
}

type userService struct {
	users repository.UserRepository
	log   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository, log *zap.Logger) UserService {
	return &userService{users: users, log: log.Named("users")}
}

func (s *userService) ListUsers(ctx context.Context, role string, filters model.UserFilters) ([]model.User, error) {
	if role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if filters.Status != nil && !model.ValidStatus(*filters.Status) {
		return nil, NewValidationError("status", fmt.Sprintf("\"%s\" is not a valid choice.", *filters.Status))
	}
	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// visibleUser loads a live account the caller may act on: their own, or any when admin.
func (s *userService) visibleUser(ctx context.Context, targetID, userID int, role string) (*model.User, error) {
	if targetID != userID && role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	if user == nil || user.Status == model.StatusDeleted {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, targetID, userID int, role string) (*model.User, error) {
	return s.visibleUser(ctx, targetID, userID, role)
}

func (s *userService) UpdateUser(ctx context.Context, targetID, userID int, role string, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.visibleUser(ctx, targetID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = optional(*req.PhoneNumber)
	}

	if err := s.users.UpdateDetails(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user in repo: %w", err)
	}
	return user, nil
}

// ChangeStatus is admin-only. Moving an account to deleted goes through the soft delete.
func (s *userService) ChangeStatus(ctx context.Context, targetID, userID int, role string, req *model.ChangeStatusRequest) (*model.User, error) {
	if role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if targetID == userID && req.Status != model.StatusActive {
		return nil, NewValidationError("status", "You cannot deactivate your own account.")
	}

	var err error
	if req.Status == model.StatusDeleted {
		err = s.users.SoftDelete(ctx, targetID)
	} else {
		err = s.users.UpdateStatus(ctx, targetID, req.Status)
	}
	if err != nil {
		return nil, s.mapWriteErr(err)
	}
	s.log.Info("user status changed",
		zap.Int("user_id", targetID), zap.Int("admin_id", userID), zap.String("status", req.Status))

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// DeleteUser soft-deletes an account. Users may delete themselves; admins may delete anyone.
func (s *userService) DeleteUser(ctx context.Context, targetID, userID int, role string) error {
	if _, err := s.visibleUser(ctx, targetID, userID, role); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, targetID); err != nil {
		return s.mapWriteErr(err)
	}
	s.log.Info("user deleted", zap.Int("user_id", targetID), zap.Int("by", userID))
	return nil
}

func (s *userService) mapWriteErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to update user in repo: %w", err)
}
