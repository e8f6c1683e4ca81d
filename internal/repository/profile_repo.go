package repository

import (
	"context"
	"errors"
	"fmt"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// ProfileRepository stores teacher and student profiles
type ProfileRepository interface {
	FindTeacherProfile(ctx context.Context, userID int) (*model.TeacherProfile, error)
	FindStudentProfile(ctx context.Context, userID int) (*model.StudentProfile, error)
	SaveTeacherOnboarding(ctx context.Context, p *model.TeacherProfile) error
	SaveStudentOnboarding(ctx context.Context, p *model.StudentProfile) error
	IsOnboardingComplete(ctx context.Context, userID int, role string) (bool, error)
}

type profileRepository struct {
	db DB
}

func NewProfileRepository(db DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindTeacherProfile(ctx context.Context, userID int) (*model.TeacherProfile, error) {
	p := &model.TeacherProfile{}
	sql := `SELECT user_id, bio, qualifications, specialization, years_of_experience, institution, department,
                   is_verified, onboarding_completed, created_at, updated_at
            FROM teacher_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, sql, userID).Scan(&p.UserID, &p.Bio, &p.Qualifications, &p.Specialization,
		&p.YearsOfExperience, &p.Institution, &p.Department, &p.IsVerified, &p.OnboardingCompleted,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find teacher profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) FindStudentProfile(ctx context.Context, userID int) (*model.StudentProfile, error) {
	p := &model.StudentProfile{}
	sql := `SELECT user_id, student_id, date_of_birth, grade_level, parent_guardian_name, parent_guardian_contact,
                   school_name, academic_interests, onboarding_completed, created_at, updated_at
            FROM student_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, sql, userID).Scan(&p.UserID, &p.StudentID, &p.DateOfBirth, &p.GradeLevel,
		&p.ParentGuardianName, &p.ParentGuardianContact, &p.SchoolName, &p.AcademicInterests,
		&p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find student profile: %w", err)
	}
	return p, nil
}

// SaveTeacherOnboarding writes the onboarding fields and marks the profile complete.
// The profile row is created if registration did not create one.
func (r *profileRepository) SaveTeacherOnboarding(ctx context.Context, p *model.TeacherProfile) error {
	sql := `INSERT INTO teacher_profiles (user_id, bio, qualifications, specialization, years_of_experience,
                                          institution, department, onboarding_completed)
            VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
            ON CONFLICT (user_id) DO UPDATE SET
                bio = EXCLUDED.bio,
                qualifications = EXCLUDED.qualifications,
                specialization = EXCLUDED.specialization,
                years_of_experience = EXCLUDED.years_of_experience,
                institution = EXCLUDED.institution,
                department = EXCLUDED.department,
                onboarding_completed = TRUE
            RETURNING is_verified, onboarding_completed, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, p.UserID, p.Bio, p.Qualifications, p.Specialization, p.YearsOfExperience,
		p.Institution, p.Department).Scan(&p.IsVerified, &p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save teacher onboarding: %w", err)
	}
	return nil
}

// SaveStudentOnboarding returns ErrDuplicate when student_id belongs to another student.
func (r *profileRepository) SaveStudentOnboarding(ctx context.Context, p *model.StudentProfile) error {
	sql := `INSERT INTO student_profiles (user_id, student_id, date_of_birth, grade_level, parent_guardian_name,
                                          parent_guardian_contact, school_name, academic_interests, onboarding_completed)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
            ON CONFLICT (user_id) DO UPDATE SET
                student_id = EXCLUDED.student_id,
                date_of_birth = EXCLUDED.date_of_birth,
                grade_level = EXCLUDED.grade_level,
                parent_guardian_name = EXCLUDED.parent_guardian_name,
                parent_guardian_contact = EXCLUDED.parent_guardian_contact,
                school_name = EXCLUDED.school_name,
                academic_interests = EXCLUDED.academic_interests,
                onboarding_completed = TRUE
            RETURNING onboarding_completed, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, p.UserID, p.StudentID, p.DateOfBirth, p.GradeLevel, p.ParentGuardianName,
		p.ParentGuardianContact, p.SchoolName, p.AcademicInterests).Scan(&p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to save student onboarding: %w", err)
	}
	return nil
}

// IsOnboardingComplete reports false for a missing profile. Roles without a profile are always complete.
func (r *profileRepository) IsOnboardingComplete(ctx context.Context, userID int, role string) (bool, error) {
	var table string
	switch role {
	case model.RoleTeacher:
		table = "teacher_profiles"
	case model.RoleStudent:
		table = "student_profiles"
	default:
		return true, nil
	}

	var done bool
	err := r.db.QueryRow(ctx, `SELECT onboarding_completed FROM `+table+` WHERE user_id = $1`, userID).Scan(&done)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check onboarding status: %w", err)
	}
	return done, nil
}
