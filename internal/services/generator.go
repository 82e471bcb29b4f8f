package services

import (
	"context"
	"fmt"
	"time"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertThresholds - за сколько дней до даты создается уведомление.
var AlertThresholds = []int{1, 3, 7}

func isThreshold(days int) bool {
	for _, t := range AlertThresholds {
		if days == t {
			return true
		}
	}
	return false
}

// DaysRemaining = ceil((date - now) / 24h). Отрицательные и нулевые значения
// означают, что дата уже наступила.
func DaysRemaining(date, now time.Time) int {
	d := date.Sub(now)
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}

// PassResult - итог одного прохода генератора.
type PassResult struct {
	Deadlines int `json:"deadlines"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Refreshed int `json:"refreshed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type NotificationGenerator struct {
	deadlines     store.DeadlineSource
	exams         store.ExamCatalog
	notifications store.NotificationStore
	validate      *validator.Validate
	retention     time.Duration
	now           Clock
	log           *logrus.Entry
}

func NewNotificationGenerator(deadlines store.DeadlineSource, exams store.ExamCatalog, notifications store.NotificationStore, retention time.Duration, clock Clock) *NotificationGenerator {
	if retention <= 0 {
		retention = models.DefaultRetention
	}
	return &NotificationGenerator{
		deadlines:     deadlines,
		exams:         exams,
		notifications: notifications,
		validate:      validator.New(),
		retention:     retention,
		now:           orSystemClock(clock),
		log:           logging.For("generator"),
	}
}

// RunGenerationPass проходит по всем активным дедлайнам. Ошибка возвращается
// только если не удалось получить сам список; сбой отдельной записи
// логируется и учитывается в Failed.
func (g *NotificationGenerator) RunGenerationPass(ctx context.Context) (PassResult, error) {
	var result PassResult

	deadlines, err := g.deadlines.ActiveDeadlines(ctx)
	if err != nil {
		return result, errors.Wrap(err, "unable to load active deadlines")
	}

	now := g.now()
	exams := make(map[primitive.ObjectID]*models.Exam)
	for i := range deadlines {
		result.Deadlines++
		g.processDeadline(ctx, &deadlines[i], exams, now, &result)
	}

	g.log.WithFields(logrus.Fields{
		"deadlines": result.Deadlines,
		"created":   result.Created,
		"updated":   result.Updated,
		"refreshed": result.Refreshed,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("generation pass finished")

	return result, nil
}

func (g *NotificationGenerator) processDeadline(ctx context.Context, d *models.ExamDeadline, exams map[primitive.ObjectID]*models.Exam, now time.Time, result *PassResult) {
	log := g.log.WithFields(logrus.Fields{
		"deadline_id": d.ID.Hex(),
		"exam_id":     d.ExamID.Hex(),
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("deadline processing panicked")
			result.Failed++
		}
	}()

	if err := g.validate.Struct(d); err != nil {
		log.WithError(err).Warn("skipping malformed deadline")
		result.Failed++
		return
	}

	exam, err := g.exam(ctx, d.ExamID, exams)
	if err != nil {
		log.WithError(err).Warn("skipping deadline with broken exam reference")
		result.Failed++
		return
	}

	for _, m := range d.Milestones() {
		mlog := log.WithField("type", m.Type)
		if m.Date.IsZero() {
			mlog.Warn("skipping milestone without a date")
			result.Failed++
			continue
		}

		days := DaysRemaining(m.Date, now)
		if days <= 0 {
			result.Skipped++
			continue
		}

		key := store.NewAlertKey(d.ExamID, m.Type, m.Date)
		title, message, err := renderAlert(m.Type, exam.Name, days)
		if err != nil {
			mlog.WithError(err).Warn("skipping milestone")
			result.Failed++
			continue
		}
		fields := store.AlertFields{
			DeadlineID:    d.ID,
			Title:         title,
			Message:       message,
			DaysRemaining: days,
			Priority:      models.PriorityForDays(days),
			ExpiresAt:     key.DeadlineDate.Add(g.retention),
		}

		if isThreshold(days) {
			created, err := g.notifications.UpsertByKey(ctx, key, fields, now)
			if err != nil {
				mlog.WithError(err).Warn("unable to upsert notification")
				result.Failed++
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			continue
		}

		// Между порогами только освежаем уже существующее уведомление
		refreshed, err := g.notifications.RefreshByKey(ctx, key, fields, now)
		if err != nil {
			mlog.WithError(err).Warn("unable to refresh notification")
			result.Failed++
			continue
		}
		if refreshed {
			result.Refreshed++
		} else {
			result.Skipped++
		}
	}
}

func (g *NotificationGenerator) exam(ctx context.Context, id primitive.ObjectID, cache map[primitive.ObjectID]*models.Exam) (*models.Exam, error) {
	if exam, ok := cache[id]; ok {
		if exam == nil {
			return nil, store.ErrExamNotFound
		}
		return exam, nil
	}

	exam, err := g.exams.GetExam(ctx, id)
	if errors.Is(err, store.ErrExamNotFound) {
		cache[id] = nil
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	cache[id] = exam
	return exam, nil
}
