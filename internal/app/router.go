package app

import (
	"context"
	"time"

	"edu-alerts-backend/internal/handlers"
	"edu-alerts-backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter регистрирует все маршруты. ctx ограничивает жизнь фоновой очистки rate limiter.
func SetupRouter(ctx context.Context, c *Container) *gin.Engine {
	cfg := c.Config
	router := gin.New()

	// Глобальные middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	// CORS настройки для поддержки frontend
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())

	health := handlers.NewHealthHandler(c.Stores.Notifications)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	notifications := handlers.NewNotificationHandler(c.Notifications, cfg.RequestTimeout)
	admin := handlers.NewAdminHandler(c.Scheduler, c.Stores.Notifications, cfg.RequestTimeout)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(c.JWT))

	// Rate limiting (опционально), считается по пользователю, поэтому после авторизации
	if cfg.RateLimitEnabled {
		api.Use(middleware.NewRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitDuration).RateLimit())
	}

	userRoutes := api.Group("/notifications")
	{
		userRoutes.GET("", notifications.GetNotifications)
		userRoutes.GET("/unread-count", notifications.GetUnreadCount)
		userRoutes.PUT("/read-all", notifications.MarkAllAsRead)
		userRoutes.PUT("/:id/read", notifications.MarkAsRead)
		userRoutes.DELETE("/:id", notifications.DeleteNotification)
	}

	adminRoutes := api.Group("/admin/notifications")
	adminRoutes.Use(middleware.RequireAlertManager())
	{
		adminRoutes.POST("/run", admin.RunCycle)
		adminRoutes.POST("/purge-suppressed", admin.PurgeSuppressed)
		adminRoutes.GET("/stats", admin.GetStats)
	}

	return router
}
