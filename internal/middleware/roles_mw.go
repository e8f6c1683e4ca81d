package middleware

import (
	"context"
	"net/http"

	"classroom_api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleMiddleware creates a middleware to check for specific user roles
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in token, ensure JWT middleware runs first"})
			return
		}

		userRole, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid role type in token"})
			return
		}

		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}

// TeacherMiddleware allows teachers only
func TeacherMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleTeacher)
}

// StudentMiddleware allows students only
func StudentMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleStudent)
}

// StaffMiddleware allows teachers and admins
func StaffMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleTeacher, model.RoleAdmin)
}

// OnboardingChecker reports whether a user finished profile onboarding.
type OnboardingChecker interface {
	IsOnboardingComplete(ctx context.Context, userID int, role string) (bool, error)
}

const onboardingRequiredMessage = "Please complete your profile onboarding before accessing this resource."

// OnboardingCompleteMiddleware blocks teachers and students whose profile is not complete.
func OnboardingCompleteMiddleware(checker OnboardingChecker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := AuthIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in token, ensure JWT middleware runs first"})
			return
		}

		done, err := checker.IsOnboardingComplete(c.Request.Context(), userID, role)
		if err != nil {
			log.Error("onboarding check failed", zap.Int("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !done {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": onboardingRequiredMessage})
			return
		}
		c.Next()
	}
}
