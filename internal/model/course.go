package model

import (
	"encoding/json"
	"time"
)

// Course is owned by a single teacher
type Course struct {
	ID          int64     `json:"id"`
	TeacherID   int       `json:"teacher_id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Course) MarshalJSON() ([]byte, error) {
	type alias Course
	return json.Marshal(struct {
		alias
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{alias(c), c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout)})
}

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Code        string `json:"code" validate:"required,notblank,max=20"`
	Description string `json:"description" validate:"required,notblank"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type Enrollment struct {
	ID         int64     `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	IsActive   bool      `json:"is_active"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// RosterEntry is one active enrollment joined with the student account
type RosterEntry struct {
	StudentID  int
	Email      string
	FirstName  string
	LastName   string
	EnrolledAt time.Time
}

type Assignment struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	MaxPoints   int       `json:"max_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"required,notblank"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxPoints   *int      `json:"max_points" validate:"omitempty,gt=0"`
}

type Submission struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	StudentID    int       `json:"student_id"`
	Content      string    `json:"content"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Points       *int      `json:"points"`
	IsReviewed   bool      `json:"is_reviewed"`
	Feedback     *string   `json:"feedback"`
}

type CreateSubmissionRequest struct {
	Content string `json:"content" validate:"required,notblank"`
}

type GradeSubmissionRequest struct {
	Points   *int    `json:"points" validate:"required,gte=0"`
	Feedback *string `json:"feedback"`
}

// CourseFilters narrows a course listing; nil fields are ignored
type CourseFilters struct {
	TeacherID *int
	StudentID *int // only courses with an active enrollment for this student
	IsActive  *bool
	Search    *string
}
