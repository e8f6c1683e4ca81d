package handler

import (
	"net/http"

	"classroom_api/internal/model"
	"classroom_api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OnboardingHandler completes teacher and student profiles
type OnboardingHandler struct {
	service service.OnboardingService
	log     *zap.Logger
}

func NewOnboardingHandler(s service.OnboardingService, log *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{service: s, log: log.Named("onboarding_handler")}
}

// The role is checked before the body is read, so a wrong role always gets 403.
func (h *OnboardingHandler) Teacher(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	if role != model.RoleTeacher {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
		return
	}

	var req model.TeacherOnboardingRequest
	if !bindBody(c, &req) {
		return
	}

	profile, err := h.service.SubmitTeacherOnboarding(c.Request.Context(), userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to save teacher profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *OnboardingHandler) Student(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	if role != model.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
		return
	}

	var req model.StudentOnboardingRequest
	if !bindBody(c, &req) {
		return
	}

	profile, err := h.service.SubmitStudentOnboarding(c.Request.Context(), userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to save student profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *OnboardingHandler) RegisterOnboardingRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/onboarding")
	g.Use(authMW)
	{
		g.POST("/teacher", h.Teacher)
		g.POST("/student", h.Student)
	}
}
