package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"classroom_api/internal/model"
	"classroom_api/internal/repository"

	"go.uber.org/zap"
)

// CourseService defines operations for courses, enrollments, assignments and submissions
type CourseService interface {
	CreateCourse(ctx context.Context, userID int, role string, req *model.CreateCourseRequest) (*model.Course, error)
	GetCourse(ctx context.Context, courseID int64, userID int, role string) (*model.Course, error)
	ListCourses(ctx context.Context, userID int, role string, search *string) ([]model.Course, error)
	UpdateCourse(ctx context.Context, courseID int64, userID int, req *model.UpdateCourseRequest) (*model.Course, error)
	DeleteCourse(ctx context.Context, courseID int64, userID int, role string) error

	Enroll(ctx context.Context, courseID int64, userID int, role string) (*model.Enrollment, error)
	Unenroll(ctx context.Context, courseID int64, userID int, role string) error
	ExportRosterCSV(ctx context.Context, courseID int64, userID int, role string) (*bytes.Buffer, error)

	CreateAssignment(ctx context.Context, courseID int64, userID int, req *model.CreateAssignmentRequest) (*model.Assignment, error)
	ListAssignments(ctx context.Context, courseID int64, userID int, role string) ([]model.Assignment, error)
	SubmitAssignment(ctx context.Context, assignmentID int64, userID int, role string, req *model.CreateSubmissionRequest) (*model.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64, userID int, role string) ([]model.Submission, error)
	GradeSubmission(ctx context.Context, submissionID int64, userID int, req *model.GradeSubmissionRequest) (*model.Submission, error)
}

type courseService struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	log         *zap.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(courses repository.CourseRepository, assignments repository.AssignmentRepository, log *zap.Logger) CourseService {
	return &courseService{courses: courses, assignments: assignments, log: log.Named("courses")}
}

func parseCourseDates(start, end string) (time.Time, time.Time, error) {
	s, _ := time.Parse(dateLayout, start)
	e, _ := time.Parse(dateLayout, end)
	if e.Before(s) {
		return s, e, NewValidationError("end_date", "End date must be on or after the start date.")
	}
	return s, e, nil
}

func (s *courseService) CreateCourse(ctx context.Context, userID int, role string, req *model.CreateCourseRequest) (*model.Course, error) {
	if role != model.RoleTeacher {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	start, end, err := parseCourseDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		TeacherID:   userID,
		Title:       strings.TrimSpace(req.Title),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		IsActive:    true,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("code", "Course with this code already exists.")
		}
		return nil, fmt.Errorf("failed to create course in repo: %w", err)
	}
	s.log.Info("course created", zap.Int64("course_id", course.ID), zap.Int("teacher_id", userID))
	return course, nil
}

func (s *courseService) findCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course by ID: %w", err)
	}
	if course == nil {
		return nil, ErrNotFound
	}
	return course, nil
}

// ownedCourse loads a course the user teaches. Admins pass when allowAdmin is set.
func (s *courseService) ownedCourse(ctx context.Context, courseID int64, userID int, role string, allowAdmin bool) (*model.Course, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID == userID || (allowAdmin && role == model.RoleAdmin) {
		return course, nil
	}
	return nil, ErrForbidden
}

// GetCourse lets students see any active course so they can decide to enroll.
func (s *courseService) GetCourse(ctx context.Context, courseID int64, userID int, role string) (*model.Course, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	switch role {
	case model.RoleAdmin:
		return course, nil
	case model.RoleTeacher:
		if course.TeacherID == userID {
			return course, nil
		}
	case model.RoleStudent:
		if course.IsActive {
			return course, nil
		}
		enrolled, err := s.courses.IsEnrolled(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			return course, nil
		}
	}
	return nil, ErrForbidden
}

func (s *courseService) ListCourses(ctx context.Context, userID int, role string, search *string) ([]model.Course, error) {
	filters := model.CourseFilters{Search: search}
	switch role {
	case model.RoleTeacher:
		filters.TeacherID = &userID
	case model.RoleStudent:
		filters.StudentID = &userID
	case model.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	courses, err := s.courses.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses from repo: %w", err)
	}
	return courses, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, courseID int64, userID int, req *model.UpdateCourseRequest) (*model.Course, error) {
	existing, err := s.ownedCourse(ctx, courseID, userID, "", false)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Apply updates
	if req.Title != nil {
		existing.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	start, end := existing.StartDate.Format(dateLayout), existing.EndDate.Format(dateLayout)
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if existing.StartDate, existing.EndDate, err = parseCourseDates(start, end); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.courses.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update course in repo: %w", err)
	}
	return existing, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, courseID int64, userID int, role string) error {
	if _, err := s.ownedCourse(ctx, courseID, userID, role, true); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete course in repo: %w", err)
	}
	s.log.Info("course deleted", zap.Int64("course_id", courseID), zap.Int("by_user", userID))
	return nil
}

// Enroll creates or reactivates the student's enrollment
func (s *courseService) Enroll(ctx context.Context, courseID int64, userID int, role string) (*model.Enrollment, error) {
	if role != model.RoleStudent {
		return nil, ErrForbidden
	}
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, NewValidationError("course", "Cannot enroll in an inactive course.")
	}

	enrollment, err := s.courses.Enroll(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}
	return enrollment, nil
}

func (s *courseService) Unenroll(ctx context.Context, courseID int64, userID int, role string) error {
	if role != model.RoleStudent {
		return ErrForbidden
	}
	if err := s.courses.Unenroll(ctx, userID, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to unenroll: %w", err)
	}
	return nil
}

// ExportRosterCSV writes the active roster of a course the user teaches
func (s *courseService) ExportRosterCSV(ctx context.Context, courseID int64, userID int, role string) (*bytes.Buffer, error) {
	if _, err := s.ownedCourse(ctx, courseID, userID, role, true); err != nil {
		return nil, err
	}
	roster, err := s.courses.Roster(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for CSV export: %w", err)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)

	header := []string{"StudentID", "Email", "FirstName", "LastName", "EnrolledAt"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range roster {
		row := []string{
			strconv.Itoa(e.StudentID),
			e.Email,
			e.FirstName,
			e.LastName,
			e.EnrolledAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buffer, nil
}
