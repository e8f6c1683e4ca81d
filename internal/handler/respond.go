package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"classroom_api/internal/middleware"
	"classroom_api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	otpCodeExpired         = "otp_expired"
	otpCodeMismatch        = "otp_mismatch"
	otpCodeAlreadyConsumed = "otp_already_consumed"
)

// respondError maps service errors onto HTTP responses. Unknown errors are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error, failMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrOtpExpired):
		c.JSON(http.StatusBadRequest, gin.H{"otp": []string{"The code has expired. Request a new one."}, "code": otpCodeExpired})
	case errors.Is(err, service.ErrOtpMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"otp": []string{"The code is invalid."}, "code": otpCodeMismatch})
	case errors.Is(err, service.ErrOtpAlreadyConsumed):
		c.JSON(http.StatusBadRequest, gin.H{"otp": []string{"The code has already been used."}, "code": otpCodeAlreadyConsumed})
	case errors.Is(err, service.ErrOtpRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "A code was sent recently, please wait before requesting another one"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error(failMsg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
	}
}

// bindBody decodes a JSON body whose validation happens in the service layer.
// An empty body decodes to the zero value so that missing fields are reported by name.
func bindBody(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		c.JSON(http.StatusBadRequest, gin.H{typeErr.Field: []string{"Invalid value type."}})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
	return false
}

// bindRequest decodes and checks gin binding tags.
func bindRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return false
	}
	return true
}

func authIdentity(c *gin.Context) (int, string, bool) {
	userID, role, ok := middleware.AuthIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return userID, role, ok
}

func pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return id, true
}
