package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classroom_api/internal/model"
	"classroom_api/internal/repository"

	"go.uber.org/zap"
)

const dateLayout = model.DateLayout

// OnboardingService completes teacher and student profiles
type OnboardingService interface {
	SubmitTeacherOnboarding(ctx context.Context, userID int, role string, req *model.TeacherOnboardingRequest) (*model.TeacherProfile, error)
	SubmitStudentOnboarding(ctx context.Context, userID int, role string, req *model.StudentOnboardingRequest) (*model.StudentProfile, error)
	IsOnboardingComplete(ctx context.Context, userID int, role string) (bool, error)
}

type onboardingService struct {
	profiles repository.ProfileRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewOnboardingService(profiles repository.ProfileRepository, log *zap.Logger) OnboardingService {
	return &onboardingService{profiles: profiles, log: log.Named("onboarding"), now: time.Now}
}

// SubmitTeacherOnboarding rejects non-teachers before looking at req.
// Submitting again overwrites the stored fields.
func (s *onboardingService) SubmitTeacherOnboarding(ctx context.Context, userID int, role string, req *model.TeacherOnboardingRequest) (*model.TeacherProfile, error) {
	if role != model.RoleTeacher {
		return nil, ErrForbidden
	}
	if req == nil {
		req = &model.TeacherOnboardingRequest{}
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	profile := &model.TeacherProfile{
		UserID:            userID,
		Bio:               optional(req.Bio),
		Qualifications:    optional(req.Qualifications),
		Specialization:    optional(req.Specialization),
		YearsOfExperience: req.YearsOfExperience,
		Institution:       optional(req.Institution),
		Department:        optional(req.Department),
	}
	if err := s.profiles.SaveTeacherOnboarding(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save teacher profile: %w", err)
	}

	s.log.Info("teacher onboarding completed", zap.Int("user_id", userID))
	return profile, nil
}

// SubmitStudentOnboarding rejects non-students before looking at req.
func (s *onboardingService) SubmitStudentOnboarding(ctx context.Context, userID int, role string, req *model.StudentOnboardingRequest) (*model.StudentProfile, error) {
	if role != model.RoleStudent {
		return nil, ErrForbidden
	}
	if req == nil {
		req = &model.StudentOnboardingRequest{}
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// format already checked by the datetime tag
	dob, _ := time.Parse(dateLayout, req.DateOfBirth)
	if dob.After(s.now()) {
		return nil, NewValidationError("date_of_birth", "Date of birth cannot be in the future.")
	}

	studentID := strings.TrimSpace(req.StudentID)
	profile := &model.StudentProfile{
		UserID:                userID,
		StudentID:             &studentID,
		DateOfBirth:           &dob,
		GradeLevel:            optional(req.GradeLevel),
		ParentGuardianName:    optional(req.ParentGuardianName),
		ParentGuardianContact: optional(req.ParentGuardianContact),
		SchoolName:            optional(req.SchoolName),
		AcademicInterests:     optional(req.AcademicInterests),
	}
	if err := s.profiles.SaveStudentOnboarding(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("student_id", "A student with this student ID already exists.")
		}
		return nil, fmt.Errorf("failed to save student profile: %w", err)
	}

	s.log.Info("student onboarding completed", zap.Int("user_id", userID))
	return profile, nil
}

func (s *onboardingService) IsOnboardingComplete(ctx context.Context, userID int, role string) (bool, error) {
	return s.profiles.IsOnboardingComplete(ctx, userID, role)
}

// optional trims s and maps an empty result to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
