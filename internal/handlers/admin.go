package handlers

import (
	"context"
	"net/http"
	"time"

	"edu-alerts-backend/internal/services"
	"edu-alerts-backend/internal/store"

	"github.com/gin-gonic/gin"
)

// AdminHandler - ручной запуск цикла и статистика. Цикл не ограничен таймаутом запроса:
// он идет до конца, даже если клиент отвалился.
type AdminHandler struct {
	scheduler     *services.AlertScheduler
	notifications store.NotificationStore
	timeout       time.Duration
}

func NewAdminHandler(scheduler *services.AlertScheduler, notifications store.NotificationStore, timeout time.Duration) *AdminHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AdminHandler{
		scheduler:     scheduler,
		notifications: notifications,
		timeout:       timeout,
	}
}

// RunCycle - POST /admin/notifications/run
func (h *AdminHandler) RunCycle(c *gin.Context) {
	result, err := h.scheduler.Trigger(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err, "Error running notification cycle")
		return
	}

	c.JSON(http.StatusOK, result)
}

// PurgeSuppressed - POST /admin/notifications/purge-suppressed
func (h *AdminHandler) PurgeSuppressed(c *gin.Context) {
	deleted, err := h.scheduler.PurgeSuppressed(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err, "Error purging notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted_count": deleted,
	})
}

// GetStats - GET /admin/notifications/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	stats, err := h.notifications.Stats(ctx)
	if err != nil {
		respondError(c, err, "Error fetching notification stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
