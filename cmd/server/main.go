// cmd/server/main.go - Exam Deadline Alerts Backend Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-alerts-backend/internal/app"
	"edu-alerts-backend/internal/config"
	"edu-alerts-backend/internal/logging"

	"github.com/gin-gonic/gin"
)

var (
	// Версия приложения
	appVersion = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	// Загружаем конфигурацию (.env подхватывается внутри)
	cfg := config.Load()

	// Настраиваем логирование
	setupLogging(cfg)
	log := logging.For("server")

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("❌ Invalid configuration")
	}

	// Выводим информацию о запуске
	printStartupInfo(cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	container, err := app.Build(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to open stores")
	}
	defer func() {
		// Graceful отключение от БД при завершении
		if err := container.Close(); err != nil {
			log.WithError(err).Warn("⚠️  Error closing stores")
		}
	}()

	// Фоновый цикл: очистка и генерация уведомлений
	container.Scheduler.Start(ctx)

	// Создаем HTTP сервер
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        app.SetupRouter(ctx, container),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Запускаем сервер в горутине
	go func() {
		log.Infof("🚀 Exam Alerts Backend v%s running on http://%s:%s", appVersion, cfg.Host, cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("❌ Server failed to start")
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("🛑 Shutting down server...")

	// Останавливаем планировщик; текущий цикл доработает до конца
	stop()

	// Graceful shutdown с таймаутом
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("⚠️  Server forced to shutdown")
	} else {
		log.Info("✅ Server gracefully stopped")
	}

	container.Scheduler.Wait()
	log.Info("👋 Exam Alerts Backend exited")
}

// setupLogging настраивает логирование в зависимости от окружения
func setupLogging(cfg *config.Config) {
	logging.Init(cfg.LogLevel, cfg.Environment)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
}

// printStartupInfo выводит информацию о запуске сервера
func printStartupInfo(cfg *config.Config) {
	log := logging.For("server")
	log.Info("================================================================================")
	log.Infof("📌 Version: %s | Build: %s | Commit: %s", appVersion, buildTime, gitCommit)
	log.Infof("🌍 Environment: %s", cfg.Environment)
	log.Infof("   • Listen: %s:%s", cfg.Host, cfg.Port)
	log.Infof("   • Store: %s | Catalog: %s | Database: %s", cfg.StoreDriver, cfg.CatalogDriver, cfg.DatabaseName)
	log.Infof("   • Alert interval: %s | Suppressed purge: %s | Retention: %d days",
		cfg.AlertInterval, cfg.SuppressedPurgeInterval, cfg.RetentionDays)
	log.Infof("   • CORS Origins: %v", cfg.AllowedOrigins)
	if cfg.RateLimitEnabled {
		log.Infof("   • Rate Limit: %d requests per %s", cfg.RateLimitRequests, cfg.RateLimitDuration)
	}
	log.Info("================================================================================")
}
