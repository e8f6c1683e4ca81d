package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// TeacherProfile is created together with a teacher account and filled in by onboarding
type TeacherProfile struct {
	UserID              int       `json:"user_id"`
	Bio                 *string   `json:"bio"`
	Qualifications      *string   `json:"qualifications"`
	Specialization      *string   `json:"specialization"`
	YearsOfExperience   *int      `json:"years_of_experience"`
	Institution         *string   `json:"institution"`
	Department          *string   `json:"department"`
	IsVerified          bool      `json:"is_verified"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StudentProfile is created together with a student account and filled in by onboarding
type StudentProfile struct {
	UserID                int        `json:"user_id"`
	StudentID             *string    `json:"student_id"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	GradeLevel            *string    `json:"grade_level"`
	ParentGuardianName    *string    `json:"parent_guardian_name"`
	ParentGuardianContact *string    `json:"parent_guardian_contact"`
	SchoolName            *string    `json:"school_name"`
	AcademicInterests     *string    `json:"academic_interests"`
	OnboardingCompleted   bool       `json:"onboarding_completed"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// MarshalJSON writes date_of_birth as a calendar date, the same format onboarding accepts.
func (p StudentProfile) MarshalJSON() ([]byte, error) {
	type alias StudentProfile
	var dob *string
	if p.DateOfBirth != nil {
		d := p.DateOfBirth.Format(DateLayout)
		dob = &d
	}
	return json.Marshal(struct {
		alias
		DateOfBirth *string `json:"date_of_birth"`
	}{alias(p), dob})
}

// TeacherOnboardingRequest is validated by the onboarding service, not by gin binding,
// so that the role check runs before any field is inspected.
type TeacherOnboardingRequest struct {
	Bio               string `json:"bio" validate:"required,notblank"`
	Qualifications    string `json:"qualifications" validate:"required,notblank"`
	Specialization    string `json:"specialization" validate:"required,notblank,max=100"`
	YearsOfExperience *int   `json:"years_of_experience" validate:"omitempty,gte=0"`
	Institution       string `json:"institution" validate:"max=100"`
	Department        string `json:"department" validate:"max=100"`
}

type StudentOnboardingRequest struct {
	StudentID             string `json:"student_id" validate:"required,notblank,max=50"`
	DateOfBirth           string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	GradeLevel            string `json:"grade_level" validate:"required,notblank,max=50"`
	ParentGuardianName    string `json:"parent_guardian_name" validate:"max=100"`
	ParentGuardianContact string `json:"parent_guardian_contact" validate:"omitempty,guardian_phone"`
	SchoolName            string `json:"school_name" validate:"max=100"`
	AcademicInterests     string `json:"academic_interests"`
}

// MeResponse bundles the account with its role profile
type MeResponse struct {
	User           *User           `json:"user"`
	TeacherProfile *TeacherProfile `json:"teacher_profile,omitempty"`
	StudentProfile *StudentProfile `json:"student_profile,omitempty"`
}
