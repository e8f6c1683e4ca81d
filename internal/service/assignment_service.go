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

const defaultMaxPoints = 100

func (s *courseService) CreateAssignment(ctx context.Context, courseID int64, userID int, req *model.CreateAssignmentRequest) (*model.Assignment, error) {
	if _, err := s.ownedCourse(ctx, courseID, userID, "", false); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	maxPoints := defaultMaxPoints
	if req.MaxPoints != nil {
		maxPoints = *req.MaxPoints
	}
	a := &model.Assignment{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxPoints:   maxPoints,
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment in repo: %w", err)
	}
	return a, nil
}

// canSeeCourse allows the owning teacher, admins, and actively enrolled students
func (s *courseService) canSeeCourse(ctx context.Context, course *model.Course, userID int, role string) (bool, error) {
	switch role {
	case model.RoleAdmin:
		return true, nil
	case model.RoleTeacher:
		return course.TeacherID == userID, nil
	case model.RoleStudent:
		return s.courses.IsEnrolled(ctx, userID, course.ID)
	}
	return false, nil
}

func (s *courseService) ListAssignments(ctx context.Context, courseID int64, userID int, role string) ([]model.Assignment, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSeeCourse(ctx, course, userID, role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return s.assignments.ListByCourse(ctx, courseID)
}

func (s *courseService) findAssignment(ctx context.Context, assignmentID int64) (*model.Assignment, *model.Course, error) {
	a, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find assignment by ID: %w", err)
	}
	if a == nil {
		return nil, nil, ErrNotFound
	}
	course, err := s.findCourse(ctx, a.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return a, course, nil
}

// SubmitAssignment accepts one submission per enrolled student
func (s *courseService) SubmitAssignment(ctx context.Context, assignmentID int64, userID int, role string, req *model.CreateSubmissionRequest) (*model.Submission, error) {
	if role != model.RoleStudent {
		return nil, ErrForbidden
	}
	a, _, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.courses.IsEnrolled(ctx, userID, a.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	sub := &model.Submission{AssignmentID: assignmentID, StudentID: userID, Content: req.Content}
	if err := s.assignments.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create submission in repo: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns every submission to the course teacher and only their own to a student
func (s *courseService) ListSubmissions(ctx context.Context, assignmentID int64, userID int, role string) ([]model.Submission, error) {
	_, course, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSeeCourse(ctx, course, userID, role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	var onlyStudent *int
	if role == model.RoleStudent {
		onlyStudent = &userID
	}
	return s.assignments.ListSubmissions(ctx, assignmentID, onlyStudent)
}

func (s *courseService) GradeSubmission(ctx context.Context, submissionID int64, userID int, req *model.GradeSubmissionRequest) (*model.Submission, error) {
	sub, err := s.assignments.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find submission by ID: %w", err)
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	a, course, err := s.findAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != userID {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if *req.Points > a.MaxPoints {
		return nil, NewValidationError("points", fmt.Sprintf("Points cannot exceed the assignment maximum of %d.", a.MaxPoints))
	}

	sub.Points = req.Points
	sub.Feedback = req.Feedback
	if err := s.assignments.GradeSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to grade submission in repo: %w", err)
	}
	s.log.Info("submission graded", zap.Int64("submission_id", submissionID), zap.Int("points", *sub.Points))
	return sub, nil
}
