package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"classroom_api/internal/model"
	"classroom_api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCourseRepo struct {
	courses     map[int64]*model.Course
	enrollments map[[2]int64]*model.Enrollment
	users       map[int]model.RosterEntry
	nextID      int64
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{
		courses:     map[int64]*model.Course{},
		enrollments: map[[2]int64]*model.Enrollment{},
		users:       map[int]model.RosterEntry{},
	}
}

func (r *memCourseRepo) Create(_ context.Context, c *model.Course) error {
	for _, existing := range r.courses {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) FindByID(_ context.Context, id int64) (*model.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memCourseRepo) List(_ context.Context, f model.CourseFilters) ([]model.Course, error) {
	out := []model.Course{}
	for id := int64(1); id <= r.nextID; id++ {
		c, ok := r.courses[id]
		if !ok {
			continue
		}
		if f.TeacherID != nil && c.TeacherID != *f.TeacherID {
			continue
		}
		if f.StudentID != nil {
			e := r.enrollments[[2]int64{int64(*f.StudentID), id}]
			if e == nil || !e.IsActive {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *memCourseRepo) Update(_ context.Context, c *model.Course) error {
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *memCourseRepo) Enroll(_ context.Context, studentID int, courseID int64) (*model.Enrollment, error) {
	key := [2]int64{int64(studentID), courseID}
	e, ok := r.enrollments[key]
	if !ok {
		e = &model.Enrollment{ID: int64(len(r.enrollments) + 1), StudentID: studentID, CourseID: courseID, EnrolledAt: time.Now()}
		r.enrollments[key] = e
	}
	e.IsActive = true
	cp := *e
	return &cp, nil
}

func (r *memCourseRepo) Unenroll(_ context.Context, studentID int, courseID int64) error {
	e, ok := r.enrollments[[2]int64{int64(studentID), courseID}]
	if !ok {
		return repository.ErrNotFound
	}
	e.IsActive = false
	return nil
}

func (r *memCourseRepo) IsEnrolled(_ context.Context, studentID int, courseID int64) (bool, error) {
	e, ok := r.enrollments[[2]int64{int64(studentID), courseID}]
	return ok && e.IsActive, nil
}

func (r *memCourseRepo) Roster(_ context.Context, courseID int64) ([]model.RosterEntry, error) {
	var out []model.RosterEntry
	for key, e := range r.enrollments {
		if key[1] == courseID && e.IsActive {
			entry := r.users[e.StudentID]
			entry.StudentID = e.StudentID
			entry.EnrolledAt = e.EnrolledAt
			out = append(out, entry)
		}
	}
	return out, nil
}

type memAssignmentRepo struct {
	assignments map[int64]*model.Assignment
	submissions map[int64]*model.Submission
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: map[int64]*model.Assignment{}, submissions: map[int64]*model.Submission{}}
}

func (r *memAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	a.ID = int64(len(r.assignments) + 1)
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}

func (r *memAssignmentRepo) FindByID(_ context.Context, id int64) (*model.Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAssignmentRepo) ListByCourse(_ context.Context, courseID int64) ([]model.Assignment, error) {
	out := []model.Assignment{}
	for _, a := range r.assignments {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) CreateSubmission(_ context.Context, s *model.Submission) error {
	for _, existing := range r.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			return repository.ErrDuplicate
		}
	}
	s.ID = int64(len(r.submissions) + 1)
	cp := *s
	r.submissions[s.ID] = &cp
	return nil
}

func (r *memAssignmentRepo) FindSubmissionByID(_ context.Context, id int64) (*model.Submission, error) {
	s, ok := r.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memAssignmentRepo) ListSubmissions(_ context.Context, assignmentID int64, studentID *int) ([]model.Submission, error) {
	out := []model.Submission{}
	for _, s := range r.submissions {
		if s.AssignmentID == assignmentID && (studentID == nil || s.StudentID == *studentID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) GradeSubmission(_ context.Context, s *model.Submission) error {
	s.IsReviewed = true
	cp := *s
	r.submissions[s.ID] = &cp
	return nil
}

const (
	teacherID = 1
	otherID   = 2
	studentID = 3
)

func newCourseFixture(t *testing.T) (CourseService, *memCourseRepo, *model.Course) {
	t.Helper()
	courses := newMemCourseRepo()
	svc := NewCourseService(courses, newMemAssignmentRepo(), zap.NewNop())
	course, err := svc.CreateCourse(context.Background(), teacherID, model.RoleTeacher, &model.CreateCourseRequest{
		Title: "Algorithms", Code: " cs201 ", Description: "Sorting and searching",
		StartDate: "2026-09-01", EndDate: "2026-12-20",
	})
	require.NoError(t, err)
	return svc, courses, course
}

func TestCourseService_CreateCourse(t *testing.T) {
	svc, _, course := newCourseFixture(t)
	ctx := context.Background()
	assert.Equal(t, "CS201", course.Code)
	assert.True(t, course.IsActive)

	_, err := svc.CreateCourse(ctx, studentID, model.RoleStudent, &model.CreateCourseRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateCourse(ctx, teacherID, model.RoleTeacher, &model.CreateCourseRequest{
		Title: "Dup", Code: "CS201", Description: "d", StartDate: "2026-09-01", EndDate: "2026-12-20",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "code")

	_, err = svc.CreateCourse(ctx, teacherID, model.RoleTeacher, &model.CreateCourseRequest{
		Title: "Backwards", Code: "CS999", Description: "d", StartDate: "2026-09-01", EndDate: "2026-08-01",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "end_date")
}

func TestCourseService_UpdateAndDeleteRequireOwner(t *testing.T) {
	svc, _, course := newCourseFixture(t)
	ctx := context.Background()
	title := "Advanced Algorithms"

	_, err := svc.UpdateCourse(ctx, course.ID, otherID, &model.UpdateCourseRequest{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateCourse(ctx, course.ID, teacherID, &model.UpdateCourseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	assert.ErrorIs(t, svc.DeleteCourse(ctx, course.ID, otherID, model.RoleTeacher), ErrForbidden)
	assert.NoError(t, svc.DeleteCourse(ctx, course.ID, 99, model.RoleAdmin))
	assert.ErrorIs(t, svc.DeleteCourse(ctx, course.ID, teacherID, model.RoleTeacher), ErrNotFound)
}

func TestCourseService_EnrollmentLifecycle(t *testing.T) {
	svc, _, course := newCourseFixture(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, course.ID, teacherID, model.RoleTeacher)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.Unenroll(ctx, course.ID, studentID, model.RoleStudent), ErrNotFound)

	e, err := svc.Enroll(ctx, course.ID, studentID, model.RoleStudent)
	require.NoError(t, err)
	assert.True(t, e.IsActive)

	list, err := svc.ListCourses(ctx, studentID, model.RoleStudent, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Unenroll(ctx, course.ID, studentID, model.RoleStudent))
	list, err = svc.ListCourses(ctx, studentID, model.RoleStudent, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	e, err = svc.Enroll(ctx, course.ID, studentID, model.RoleStudent)
	require.NoError(t, err)
	assert.True(t, e.IsActive)
}

func TestCourseService_ExportRosterCSV(t *testing.T) {
	svc, courses, course := newCourseFixture(t)
	ctx := context.Background()
	courses.users[studentID] = model.RosterEntry{Email: "grace@school.edu", FirstName: "Grace", LastName: "Hopper"}

	_, err := svc.Enroll(ctx, course.ID, studentID, model.RoleStudent)
	require.NoError(t, err)

	_, err = svc.ExportRosterCSV(ctx, course.ID, otherID, model.RoleTeacher)
	assert.ErrorIs(t, err, ErrForbidden)

	buf, err := svc.ExportRosterCSV(ctx, course.ID, teacherID, model.RoleTeacher)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "StudentID,Email,FirstName,LastName,EnrolledAt", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "3,grace@school.edu,Grace,Hopper,"))
}

func TestCourseService_AssignmentsAndGrading(t *testing.T) {
	svc, _, course := newCourseFixture(t)
	ctx := context.Background()
	due := time.Date(2026, 10, 1, 23, 59, 0, 0, time.UTC)

	_, err := svc.CreateAssignment(ctx, course.ID, otherID, &model.CreateAssignmentRequest{Title: "HW1", Description: "d", DueDate: due})
	assert.ErrorIs(t, err, ErrForbidden)

	a, err := svc.CreateAssignment(ctx, course.ID, teacherID, &model.CreateAssignmentRequest{Title: "HW1", Description: "d", DueDate: due})
	require.NoError(t, err)
	assert.Equal(t, 100, a.MaxPoints)

	_, err = svc.SubmitAssignment(ctx, a.ID, studentID, model.RoleStudent, &model.CreateSubmissionRequest{Content: "answer"})
	assert.ErrorIs(t, err, ErrForbidden, "not enrolled yet")

	_, err = svc.Enroll(ctx, course.ID, studentID, model.RoleStudent)
	require.NoError(t, err)

	sub, err := svc.SubmitAssignment(ctx, a.ID, studentID, model.RoleStudent, &model.CreateSubmissionRequest{Content: "answer"})
	require.NoError(t, err)

	_, err = svc.SubmitAssignment(ctx, a.ID, studentID, model.RoleStudent, &model.CreateSubmissionRequest{Content: "again"})
	assert.ErrorIs(t, err, ErrConflict)

	tooMany := 101
	_, err = svc.GradeSubmission(ctx, sub.ID, teacherID, &model.GradeSubmissionRequest{Points: &tooMany})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "points")

	points := 88
	_, err = svc.GradeSubmission(ctx, sub.ID, otherID, &model.GradeSubmissionRequest{Points: &points})
	assert.ErrorIs(t, err, ErrForbidden)

	graded, err := svc.GradeSubmission(ctx, sub.ID, teacherID, &model.GradeSubmissionRequest{Points: &points})
	require.NoError(t, err)
	assert.True(t, graded.IsReviewed)
	assert.Equal(t, 88, *graded.Points)

	subs, err := svc.ListSubmissions(ctx, a.ID, studentID, model.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
