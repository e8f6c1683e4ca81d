package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5"
)

// CourseRepository defines operations for courses and enrollments
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, id int64) (*model.Course, error)
	List(ctx context.Context, filters model.CourseFilters) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id int64) error

	Enroll(ctx context.Context, studentID int, courseID int64) (*model.Enrollment, error)
	Unenroll(ctx context.Context, studentID int, courseID int64) error
	IsEnrolled(ctx context.Context, studentID int, courseID int64) (bool, error)
	Roster(ctx context.Context, courseID int64) ([]model.RosterEntry, error)
}

type courseRepository struct {
	db DB
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db DB) CourseRepository {
	return &courseRepository{db: db}
}

const courseColumns = `c.id, c.teacher_id, c.title, c.code, c.description, c.start_date, c.end_date, c.is_active, c.created_at, c.updated_at`

func scanCourse(row pgx.Row, c *model.Course) error {
	return row.Scan(&c.ID, &c.TeacherID, &c.Title, &c.Code, &c.Description, &c.StartDate, &c.EndDate,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts a new course. Returns ErrDuplicate when the code is taken.
func (r *courseRepository) Create(ctx context.Context, c *model.Course) error {
	sql := `INSERT INTO courses (teacher_id, title, code, description, start_date, end_date, is_active)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, c.TeacherID, c.Title, c.Code, c.Description, c.StartDate, c.EndDate, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// FindByID retrieves a course by its ID
func (r *courseRepository) FindByID(ctx context.Context, id int64) (*model.Course, error) {
	c := &model.Course{}
	err := scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find course by ID: %w", err)
	}
	return c, nil
}

// List retrieves courses with optional filters
func (r *courseRepository) List(ctx context.Context, filters model.CourseFilters) ([]model.Course, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + courseColumns + ` FROM courses c`)

	args := []interface{}{}
	argCount := 1
	var conditions []string

	if filters.StudentID != nil {
		queryBuilder.WriteString(fmt.Sprintf(
			" JOIN enrollments e ON e.course_id = c.id AND e.is_active AND e.student_id = $%d", argCount))
		args = append(args, *filters.StudentID)
		argCount++
	}
	if filters.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", argCount))
		args = append(args, *filters.TeacherID)
		argCount++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_active = $%d", argCount))
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.code ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
		//argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY c.start_date DESC, c.id DESC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}
	return courses, nil
}

// Update modifies an existing course owned by c.TeacherID
func (r *courseRepository) Update(ctx context.Context, c *model.Course) error {
	sql := `UPDATE courses
            SET title = $1, description = $2, start_date = $3, end_date = $4, is_active = $5
            WHERE id = $6 AND teacher_id = $7 RETURNING updated_at`
	err := r.db.QueryRow(ctx, sql, c.Title, c.Description, c.StartDate, c.EndDate, c.IsActive, c.ID, c.TeacherID).
		Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

// Delete removes a course; enrollments, assignments and submissions cascade
func (r *courseRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Enroll creates the enrollment or reactivates a previous one
func (r *courseRepository) Enroll(ctx context.Context, studentID int, courseID int64) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	sql := `INSERT INTO enrollments (student_id, course_id, is_active)
            VALUES ($1, $2, TRUE)
            ON CONFLICT (student_id, course_id) DO UPDATE SET is_active = TRUE
            RETURNING id, student_id, course_id, is_active, enrolled_at`
	err := r.db.QueryRow(ctx, sql, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &e.IsActive, &e.EnrolledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll student: %w", err)
	}
	return e, nil
}

// Unenroll deactivates an enrollment. Returns ErrNotFound when the student never enrolled.
func (r *courseRepository) Unenroll(ctx context.Context, studentID int, courseID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE enrollments SET is_active = FALSE WHERE student_id = $1 AND course_id = $2`,
		studentID, courseID)
	if err != nil {
		return fmt.Errorf("failed to unenroll student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *courseRepository) IsEnrolled(ctx context.Context, studentID int, courseID int64) (bool, error) {
	var enrolled bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND is_active)`,
		studentID, courseID).Scan(&enrolled)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}

// Roster lists actively enrolled students ordered by last name
func (r *courseRepository) Roster(ctx context.Context, courseID int64) ([]model.RosterEntry, error) {
	sql := `SELECT u.id, u.email, u.first_name, u.last_name, e.enrolled_at
            FROM enrollments e JOIN users u ON u.id = e.student_id
            WHERE e.course_id = $1 AND e.is_active
            ORDER BY u.last_name, u.first_name, u.id`
	rows, err := r.db.Query(ctx, sql, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var roster []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		if err := rows.Scan(&e.StudentID, &e.Email, &e.FirstName, &e.LastName, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		roster = append(roster, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster rows: %w", err)
	}
	return roster, nil
}
