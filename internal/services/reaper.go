package services

import (
	"context"
	"time"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExpiryReaper struct {
	notifications store.NotificationStore
	exams         store.ExamCatalog
	users         store.UserDirectory
	retention     time.Duration
	now           Clock
	log           *logrus.Entry
}

func NewExpiryReaper(notifications store.NotificationStore, exams store.ExamCatalog, users store.UserDirectory, retention time.Duration, clock Clock) *ExpiryReaper {
	if retention <= 0 {
		retention = models.DefaultRetention
	}
	return &ExpiryReaper{
		notifications: notifications,
		exams:         exams,
		users:         users,
		retention:     retention,
		now:           orSystemClock(clock),
		log:           logging.For("reaper"),
	}
}

// PurgeExpired удаляет все уведомления, дата дедлайна которых уже прошла,
// независимо от expires_at и оверлеев.
func (r *ExpiryReaper) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := r.notifications.DeleteDeadlinePassed(ctx, r.now())
	if err != nil {
		return 0, errors.Wrap(err, "unable to purge expired notifications")
	}
	if deleted > 0 {
		r.log.WithField("deleted", deleted).Info("purged notifications with passed deadlines")
	}
	return deleted, nil
}

// PurgeFullySuppressed удаляет уведомления старше окна хранения, которые
// скрыл каждый пользователь, способный их увидеть. Экзамен, которого больше нет,
// означает пустую аудиторию.
func (r *ExpiryReaper) PurgeFullySuppressed(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.retention)

	candidates, err := r.notifications.FindCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "unable to load purge candidates")
	}

	audiences := make(map[primitive.ObjectID][]primitive.ObjectID)
	var ids []primitive.ObjectID
	for i := range candidates {
		n := &candidates[i]

		audience, ok := audiences[n.ExamID]
		if !ok {
			audience, err = r.audience(ctx, n.ExamID)
			if err != nil {
				r.log.WithError(err).WithField("notification_id", n.ID.Hex()).Warn("unable to resolve audience")
				continue
			}
			audiences[n.ExamID] = audience
		}

		if suppressedForAll(n, audience) {
			ids = append(ids, n.ID)
		}
	}

	deleted, err := r.notifications.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "unable to delete suppressed notifications")
	}

	r.log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"deleted":    deleted,
	}).Info("suppressed purge finished")

	return deleted, nil
}

func (r *ExpiryReaper) audience(ctx context.Context, examID primitive.ObjectID) ([]primitive.ObjectID, error) {
	exam, err := r.exams.GetExam(ctx, examID)
	if errors.Is(err, store.ErrExamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.users.ListUserIDsByStreams(ctx, exam.Streams)
}

func suppressedForAll(n *models.Notification, audience []primitive.ObjectID) bool {
	for _, id := range audience {
		if !n.IsDeletedBy(id) {
			return false
		}
	}
	return true
}
