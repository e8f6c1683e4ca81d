package repository

import (
	"context"
	"testing"
	"time"

	"classroom_api/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepository_Create_DuplicateCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO courses`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewCourseRepository(mock).Create(context.Background(), &model.Course{TeacherID: 1, Code: "CS101"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCourseRepository_List_StudentFilterJoinsEnrollments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	studentID := 4
	active := true
	mock.ExpectQuery(`JOIN enrollments e ON e.course_id = c.id AND e.is_active AND e.student_id = \$1 WHERE c.is_active = \$2`).
		WithArgs(4, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "teacher_id", "title", "code", "description", "start_date", "end_date", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), 2, "Algorithms", "CS201", "Sorting and searching", start, start.AddDate(0, 4, 0), true, start, start))

	courses, err := NewCourseRepository(mock).List(context.Background(), model.CourseFilters{StudentID: &studentID, IsActive: &active})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS201", courses[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_Unenroll_NeverEnrolled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE enrollments SET is_active = FALSE`).
		WithArgs(4, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewCourseRepository(mock).Unenroll(context.Background(), 4, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileRepository_SaveStudentOnboarding_DuplicateStudentID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO student_profiles`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "student_profiles_student_id_key"})

	sid := "S-1"
	err = NewProfileRepository(mock).SaveStudentOnboarding(context.Background(), &model.StudentProfile{UserID: 3, StudentID: &sid})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestProfileRepository_IsOnboardingComplete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT onboarding_completed FROM teacher_profiles WHERE user_id = \$1`).
		WithArgs(3).
		WillReturnRows(pgxmock.NewRows([]string{"onboarding_completed"}).AddRow(true))

	repo := NewProfileRepository(mock)
	done, err := repo.IsOnboardingComplete(context.Background(), 3, model.RoleTeacher)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = repo.IsOnboardingComplete(context.Background(), 1, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}
