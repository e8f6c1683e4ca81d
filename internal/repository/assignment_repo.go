package repository

import (
	"context"
	"errors"
	"fmt"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// AssignmentRepository defines operations for assignments and submissions
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	FindByID(ctx context.Context, id int64) (*model.Assignment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]model.Assignment, error)

	CreateSubmission(ctx context.Context, s *model.Submission) error
	FindSubmissionByID(ctx context.Context, id int64) (*model.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64, studentID *int) ([]model.Submission, error)
	GradeSubmission(ctx context.Context, s *model.Submission) error
}

type assignmentRepository struct {
	db DB
}

func NewAssignmentRepository(db DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	sql := `INSERT INTO assignments (course_id, title, description, due_date, max_points)
            VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, a.CourseID, a.Title, a.Description, a.DueDate, a.MaxPoints).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) FindByID(ctx context.Context, id int64) (*model.Assignment, error) {
	a := &model.Assignment{}
	sql := `SELECT id, course_id, title, description, due_date, max_points, created_at, updated_at
            FROM assignments WHERE id = $1`
	err := r.db.QueryRow(ctx, sql, id).Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.DueDate,
		&a.MaxPoints, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment by ID: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]model.Assignment, error) {
	sql := `SELECT id, course_id, title, description, due_date, max_points, created_at, updated_at
            FROM assignments WHERE course_id = $1 ORDER BY due_date, id`
	rows, err := r.db.Query(ctx, sql, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.DueDate, &a.MaxPoints,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment rows: %w", err)
	}
	return assignments, nil
}

// CreateSubmission returns ErrDuplicate when the student already submitted this assignment
func (r *assignmentRepository) CreateSubmission(ctx context.Context, s *model.Submission) error {
	sql := `INSERT INTO submissions (assignment_id, student_id, content)
            VALUES ($1, $2, $3) RETURNING id, submitted_at, is_reviewed`
	err := r.db.QueryRow(ctx, sql, s.AssignmentID, s.StudentID, s.Content).Scan(&s.ID, &s.SubmittedAt, &s.IsReviewed)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

const submissionColumns = `id, assignment_id, student_id, content, submitted_at, points, is_reviewed, feedback`

func (r *assignmentRepository) FindSubmissionByID(ctx context.Context, id int64) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id).
		Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Content, &s.SubmittedAt, &s.Points, &s.IsReviewed, &s.Feedback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find submission by ID: %w", err)
	}
	return s, nil
}

// ListSubmissions returns all submissions for an assignment, or only studentID's when set
func (r *assignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64, studentID *int) ([]model.Submission, error) {
	sql := `SELECT ` + submissionColumns + ` FROM submissions WHERE assignment_id = $1`
	args := []interface{}{assignmentID}
	if studentID != nil {
		sql += ` AND student_id = $2`
		args = append(args, *studentID)
	}
	sql += ` ORDER BY submitted_at, id`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Content, &s.SubmittedAt, &s.Points,
			&s.IsReviewed, &s.Feedback); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return submissions, nil
}

// GradeSubmission stores points and feedback and marks the submission reviewed
func (r *assignmentRepository) GradeSubmission(ctx context.Context, s *model.Submission) error {
	tag, err := r.db.Exec(ctx, `UPDATE submissions SET points = $1, feedback = $2, is_reviewed = TRUE WHERE id = $3`,
		s.Points, s.Feedback, s.ID)
	if err != nil {
		return fmt.Errorf("failed to grade submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.IsReviewed = true
	return nil
}
