// internal/middleware/permissions.go

package middleware

import (
	"net/http"

	"edu-alerts-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// roleFromContext отримує роль, встановлену AuthMiddleware
func roleFromContext(c *gin.Context) (models.UserRole, bool) {
	roleInterface, exists := c.Get(ContextRole)
	if !exists {
		return "", false
	}
	roleStr, ok := roleInterface.(string)
	if !ok || roleStr == "" {
		return "", false
	}
	return models.UserRole(roleStr), true
}

// RequireAlertManager пропускає тільки ролі, яким дозволено керувати циклом сповіщень
// 🔒 Адмінські ендпоінти /admin/notifications
func RequireAlertManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := roleFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			c.Abort()
			return
		}

		if !userRole.IsValid() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid role",
			})
			c.Abort()
			return
		}

		if !userRole.CanManageAlerts() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":         "Insufficient permissions",
				"required_role": models.RoleAdmin,
				"user_role":     userRole,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
