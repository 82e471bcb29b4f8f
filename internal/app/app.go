// Package app собирает хранилища, сервисы, планировщик и роутер из конфигурации.
package app

import (
	"context"
	"time"

	"edu-alerts-backend/internal/config"
	"edu-alerts-backend/internal/database"
	"edu-alerts-backend/internal/database/memory"
	"edu-alerts-backend/internal/database/postgres"
	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/services"
	"edu-alerts-backend/internal/store"
	"edu-alerts-backend/pkg/auth"

	"github.com/pkg/errors"
)

// Stores - реализации интерфейсов хранилища, выбранные драйверами.
type Stores struct {
	Notifications store.NotificationStore
	Deadlines     store.DeadlineSource
	Exams         store.ExamCatalog
	Users         store.UserDirectory

	closers []func() error
}

// Container - все, что нужно серверу и CLI.
type Container struct {
	Config *config.Config
	Stores Stores

	Generator     *services.NotificationGenerator
	Reaper        *services.ExpiryReaper
	Notifications *services.NotificationService
	Scheduler     *services.AlertScheduler
	JWT           *auth.JWTManager
}

// OpenStores подключает хранилища согласно STORE_DRIVER и CATALOG_DRIVER.
func OpenStores(ctx context.Context, cfg *config.Config) (Stores, error) {
	var stores Stores
	log := logging.For("app")

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.New()
		stores.Notifications, stores.Deadlines, stores.Exams, stores.Users = mem, mem, mem, mem
		log.Warn("using in-memory store, data is lost on restart")

	case config.StoreDriverMongo:
		db, err := database.NewMongoDB(cfg)
		if err != nil {
			return stores, err
		}
		stores.closers = append(stores.closers, db.Close)

		// без уникального ключа и TTL хранилище уведомлений небезопасно
		if err := db.CreateIndexes(ctx); err != nil {
			_ = stores.Close()
			return stores, err
		}
		if _, err := database.BackfillExpiry(ctx, db.Database, cfg.Retention()); err != nil {
			log.WithError(err).Warn("failed to backfill expires_at")
		}

		catalog := database.NewCatalog(db.Database)
		stores.Notifications = database.NewNotificationStore(db.Database)
		stores.Deadlines, stores.Exams, stores.Users = catalog, catalog, catalog

	default:
		return stores, errors.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.CatalogDriver == config.CatalogDriverPostgres {
		catalog, err := postgres.Open(ctx, cfg.CatalogDSN)
		if err != nil {
			_ = stores.Close()
			return stores, err
		}
		stores.closers = append(stores.closers, catalog.Close)
		stores.Deadlines, stores.Exams = catalog, catalog
		log.Info("exam catalog served from PostgreSQL")
	}

	return stores, nil
}

func (s Stores) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewContainer связывает сервисы поверх готовых хранилищ.
func NewContainer(cfg *config.Config, stores Stores, clock services.Clock) *Container {
	retention := cfg.Retention()

	generator := services.NewNotificationGenerator(stores.Deadlines, stores.Exams, stores.Notifications, retention, clock)
	reaper := services.NewExpiryReaper(stores.Notifications, stores.Exams, stores.Users, retention, clock)

	return &Container{
		Config:        cfg,
		Stores:        stores,
		Generator:     generator,
		Reaper:        reaper,
		Notifications: services.NewNotificationService(stores.Notifications, stores.Users, stores.Exams, clock),
		Scheduler:     services.NewAlertScheduler(reaper, generator, cfg.AlertInterval, cfg.SuppressedPurgeInterval, clock),
		JWT:           auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiration)*time.Hour),
	}
}

// Build = OpenStores + NewContainer.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, stores, nil), nil
}

func (c *Container) Close() error {
	return c.Stores.Close()
}
