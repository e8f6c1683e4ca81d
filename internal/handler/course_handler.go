package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"classroom_api/internal/model"
	"classroom_api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CourseHandler handles course, enrollment, assignment and submission requests
type CourseHandler struct {
	service service.CourseService
	log     *zap.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(s service.CourseService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{service: s, log: log.Named("course_handler")}
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	var req model.CreateCourseRequest
	if !bindBody(c, &req) {
		return
	}

	course, err := h.service.CreateCourse(c.Request.Context(), userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create course")
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}

	var search *string
	if q := strings.TrimSpace(c.Query("search")); q != "" {
		search = &q
	}

	courses, err := h.service.ListCourses(c.Request.Context(), userID, role, search)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve courses")
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	course, err := h.service.GetCourse(c.Request.Context(), courseID, userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve course")
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	var req model.UpdateCourseRequest
	if !bindBody(c, &req) {
		return
	}

	course, err := h.service.UpdateCourse(c.Request.Context(), courseID, userID, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update course")
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), courseID, userID, role); err != nil {
		respondError(c, h.log, err, "Failed to delete course")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), courseID, userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to enroll")
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

func (h *CourseHandler) Unenroll(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	if err := h.service.Unenroll(c.Request.Context(), courseID, userID, role); err != nil {
		respondError(c, h.log, err, "Failed to unenroll")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) ExportRoster(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	csvBuffer, err := h.service.ExportRosterCSV(c.Request.Context(), courseID, userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to export roster to CSV")
		return
	}

	fileName := fmt.Sprintf("course_%d_roster_%s.csv", courseID, time.Now().Format("20060102_150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "text/csv", csvBuffer.Bytes())
}

func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	var req model.CreateAssignmentRequest
	if !bindBody(c, &req) {
		return
	}

	assignment, err := h.service.CreateAssignment(c.Request.Context(), courseID, userID, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to create assignment")
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (h *CourseHandler) ListAssignments(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}

	assignments, err := h.service.ListAssignments(c.Request.Context(), courseID, userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

func (h *CourseHandler) SubmitAssignment(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	var req model.CreateSubmissionRequest
	if !bindBody(c, &req) {
		return
	}

	submission, err := h.service.SubmitAssignment(c.Request.Context(), assignmentID, userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to submit assignment")
		return
	}
	c.JSON(http.StatusCreated, submission)
}

func (h *CourseHandler) ListSubmissions(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "assignment")
	if !ok {
		return
	}

	submissions, err := h.service.ListSubmissions(c.Request.Context(), assignmentID, userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve submissions")
		return
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}
	c.JSON(http.StatusOK, submissions)
}

func (h *CourseHandler) GradeSubmission(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}
	submissionID, ok := pathID(c, "submission")
	if !ok {
		return
	}
	var req model.GradeSubmissionRequest
	if !bindBody(c, &req) {
		return
	}

	submission, err := h.service.GradeSubmission(c.Request.Context(), submissionID, userID, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to grade submission")
		return
	}
	c.JSON(http.StatusOK, submission)
}

// RegisterCourseRoutes registers course routes. Every route requires authentication and a
// completed onboarding; ownership and enrollment are enforced by the service.
func (h *CourseHandler) RegisterCourseRoutes(rg *gin.RouterGroup, authMW, onboardedMW, teacherMW, studentMW, staffMW gin.HandlerFunc) {
	courses := rg.Group("/courses")
	courses.Use(authMW, onboardedMW)
	{
		courses.POST("", teacherMW, h.CreateCourse)
		courses.GET("", h.ListCourses)
		courses.GET("/:id", h.GetCourse)
		courses.PUT("/:id", teacherMW, h.UpdateCourse)
		courses.DELETE("/:id", h.DeleteCourse)
		courses.POST("/:id/enroll", studentMW, h.Enroll)
		courses.POST("/:id/unenroll", studentMW, h.Unenroll)
		courses.GET("/:id/roster/export", staffMW, h.ExportRoster)
		courses.POST("/:id/assignments", teacherMW, h.CreateAssignment)
		courses.GET("/:id/assignments", h.ListAssignments)
	}

	assignments := rg.Group("/assignments")
	assignments.Use(authMW, onboardedMW)
	{
		assignments.POST("/:id/submissions", studentMW, h.SubmitAssignment)
		assignments.GET("/:id/submissions", h.ListSubmissions)
	}

	submissions := rg.Group("/submissions")
	submissions.Use(authMW, onboardedMW)
	{
		submissions.POST("/:id/grade", teacherMW, h.GradeSubmission)
	}
}
