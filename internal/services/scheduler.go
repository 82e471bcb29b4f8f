package services

import (
	"context"
	"sync"
	"time"

	"edu-alerts-backend/internal/logging"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type expiryPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
	PurgeFullySuppressed(ctx context.Context) (int64, error)
}

type generationRunner interface {
	RunGenerationPass(ctx context.Context) (PassResult, error)
}

// CycleResult - итог одного цикла: очистка и проход генератора.
type CycleResult struct {
	Purged int64 `json:"purged"`
	PassResult
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// AlertScheduler запускает циклы последовательно: новый цикл ждет окончания текущего.
type AlertScheduler struct {
	mu        sync.Mutex
	reaper    expiryPurger
	generator generationRunner

	alertInterval      time.Duration
	suppressedInterval time.Duration

	now Clock
	log *logrus.Entry
	wg  sync.WaitGroup
}

const (
	DefaultAlertInterval           = time.Hour
	DefaultSuppressedPurgeInterval = 24 * time.Hour
)

func NewAlertScheduler(reaper expiryPurger, generator generationRunner, alertInterval, suppressedInterval time.Duration, clock Clock) *AlertScheduler {
	if alertInterval <= 0 {
		alertInterval = DefaultAlertInterval
	}
	if suppressedInterval <= 0 {
		suppressedInterval = DefaultSuppressedPurgeInterval
	}
	return &AlertScheduler{
		reaper:             reaper,
		generator:          generator,
		alertInterval:      alertInterval,
		suppressedInterval: suppressedInterval,
		now:                orSystemClock(clock),
		log:                logging.For("scheduler"),
	}
}

// Trigger выполняет один цикл. Очистка идет первой, чтобы генератор не
// пересоздал уведомление по только что прошедшей дате; если она не удалась,
// генерация не запускается.
func (s *AlertScheduler) Trigger(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := CycleResult{StartedAt: s.now()}
	start := time.Now()

	purged, err := s.reaper.PurgeExpired(ctx)
	if err != nil {
		result.Duration = time.Since(start)
		return result, errors.Wrap(err, "alert cycle aborted")
	}
	result.Purged = purged

	pass, err := s.generator.RunGenerationPass(ctx)
	result.PassResult = pass
	result.Duration = time.Since(start)
	if err != nil {
		return result, errors.Wrap(err, "alert cycle failed")
	}

	return result, nil
}

// PurgeSuppressed не пересекается с обычным циклом.
func (s *AlertScheduler) PurgeSuppressed(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reaper.PurgeFullySuppressed(ctx)
}

// Start запускает фоновые задачи. Первый цикл выполняется сразу.
func (s *AlertScheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.runAlerts(ctx)
	go s.runSuppressedPurge(ctx)
}

// Wait блокируется до остановки фоновых задач (после отмены ctx).
func (s *AlertScheduler) Wait() {
	s.wg.Wait()
}

func (s *AlertScheduler) runAlerts(ctx context.Context) {
	defer s.wg.Done()

	s.cycle(ctx)

	ticker := time.NewTicker(s.alertInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("alert scheduler stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *AlertScheduler) cycle(ctx context.Context) {
	result, err := s.Trigger(ctx)
	if err != nil {
		s.log.WithError(err).Error("alert cycle failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"purged":   result.Purged,
		"created":  result.Created,
		"updated":  result.Updated,
		"failed":   result.Failed,
		"duration": result.Duration,
	}).Info("alert cycle finished")
}

func (s *AlertScheduler) runSuppressedPurge(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.suppressedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeSuppressed(ctx); err != nil {
				s.log.WithError(err).Error("suppressed purge failed")
			}
		}
	}
}
