package services

import (
	"sync"
	"testing"
	"time"

	"edu-alerts-backend/internal/database/memory"
	"edu-alerts-backend/internal/models"
)

var base = time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	store     *memory.Store
	clock     *fakeClock
	generator *NotificationGenerator
	service   *NotificationService
	reaper    *ExpiryReaper
	scheduler *AlertScheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s := memory.New()
	clock := &fakeClock{t: base}
	generator := NewNotificationGenerator(s, s, s, models.DefaultRetention, clock.Now)
	reaper := NewExpiryReaper(s, s, s, models.DefaultRetention, clock.Now)

	return &env{
		store:     s,
		clock:     clock,
		generator: generator,
		service:   NewNotificationService(s, s, s, clock.Now),
		reaper:    reaper,
		scheduler: NewAlertScheduler(reaper, generator, time.Hour, 24*time.Hour, clock.Now),
	}
}

func at(d time.Duration) *time.Time {
	v := base.Add(d)
	return &v
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
