package handlers

import (
	"net/http"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/middleware"
	"edu-alerts-backend/internal/services"
	"edu-alerts-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// respondError переводит ошибки сервисов в HTTP-статусы. Все, что не распознано, - 500.
func respondError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, store.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
	case errors.Is(err, store.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, services.ErrInvalidNotificationType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification type"})
	default:
		_ = c.Error(err)
		logging.For("http").
			WithError(err).
			WithField("request_id", c.GetString(middleware.ContextRequestID)).
			Error(internalMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalMsg})
	}
}
