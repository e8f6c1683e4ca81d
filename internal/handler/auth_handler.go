package handler

import (
	"net/http"

	"classroom_api/internal/model"
	"classroom_api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const passwordResetMessage = "If an account with that email exists, a reset code has been sent"

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	log     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, log: log.Named("auth_handler")}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !bindRequest(c, &req) {
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, model.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !bindRequest(c, &req) {
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, model.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}

	me, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}
	var req model.ChangePasswordRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, h.log, err, "Failed to change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *AuthHandler) SendEmailVerification(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}

	if err := h.service.SendEmailVerification(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err, "Failed to send verification code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID, _, ok := authIdentity(c)
	if !ok {
		return
	}
	var req model.VerifyOTPRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.service.VerifyEmail(c.Request.Context(), userID, req.OTP); err != nil {
		respondError(c, h.log, err, "Failed to verify email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req model.PasswordResetRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err, "Failed to request password reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": passwordResetMessage})
}

func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req model.PasswordResetComplete
	if !bindRequest(c, &req) {
		return
	}

	if err := h.service.CompletePasswordReset(c.Request.Context(), req); err != nil {
		respondError(c, h.log, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/password-reset/request", h.RequestPasswordReset)
		authGroup.POST("/password-reset/complete", h.CompletePasswordReset)
	}

	private := authGroup.Group("")
	private.Use(authMW)
	{
		private.GET("/me", h.Me)
		private.POST("/change-password", h.ChangePassword)
		private.POST("/verify/email/send", h.SendEmailVerification)
		private.POST("/verify/email", h.VerifyEmail)
	}
}
