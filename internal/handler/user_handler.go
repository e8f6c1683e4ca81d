package handler

import (
	"net/http"
	"strings"

	"classroom_api/internal/model"
	"classroom_api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles account management requests
type UserHandler struct {
	service service.UserService
	log     *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(s service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: s, log: log.Named("user_handler")}
}

func queryFilter(c *gin.Context, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	_, role, ok := authIdentity(c)
	if !ok {
		return
	}

	filters := model.UserFilters{
		Role:   queryFilter(c, "role"),
		Status: queryFilter(c, "status"),
		Search: queryFilter(c, "search"),
	}
	users, err := h.service.ListUsers(c.Request.Context(), role, filters)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user")
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), int(targetID), userID, role)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user")
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !bindBody(c, &req) {
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), int(targetID), userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangeStatus(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user")
	if !ok {
		return
	}
	var req model.ChangeStatusRequest
	if !bindBody(c, &req) {
		return
	}

	user, err := h.service.ChangeStatus(c.Request.Context(), int(targetID), userID, role, &req)
	if err != nil {
		respondError(c, h.log, err, "Failed to change user status")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, role, ok := authIdentity(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), int(targetID), userID, role); err != nil {
		respondError(c, h.log, err, "Failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterUserRoutes registers account routes. Listing and status changes are admin only.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(authMW)
	{
		users.GET("", adminMW, h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.POST("/:id/status", adminMW, h.ChangeStatus)
	}
}
