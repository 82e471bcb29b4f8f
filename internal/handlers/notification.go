// internal/handlers/notification.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"edu-alerts-backend/internal/middleware"
	"edu-alerts-backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	timeout             time.Duration
}

func NewNotificationHandler(notificationService *services.NotificationService, timeout time.Duration) *NotificationHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationHandler{
		notificationService: notificationService,
		timeout:             timeout,
	}
}

func (h *NotificationHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// GetNotifications - GET /notifications?unread_only=&type=
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var opts services.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	notifications, err := h.notificationService.ListVisible(ctx, userID, opts)
	if err != nil {
		respondError(c, err, "Error fetching notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// GetUnreadCount - GET /notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	count, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		respondError(c, err, "Error counting notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

// MarkAsRead - PUT /notifications/:id/read. Повторный вызов отвечает 200 с modified=false.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	notificationID, ok := notificationIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.notificationService.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		respondError(c, err, "Error updating notification")
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkAllAsRead - PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.notificationService.MarkAllAsRead(ctx, userID)
	if err != nil {
		respondError(c, err, "Error updating notifications")
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteNotification - DELETE /notifications/:id, скрывает уведомление только для текущего пользователя
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	notificationID, ok := notificationIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.notificationService.MarkAsDeleted(ctx, notificationID, userID)
	if err != nil {
		respondError(c, err, "Error deleting notification")
		return
	}

	c.JSON(http.StatusOK, result)
}

func requireUser(c *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return primitive.NilObjectID, false
	}
	return userID, true
}

func notificationIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification ID",
		})
		return primitive.NilObjectID, false
	}
	return id, true
}
