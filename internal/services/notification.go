package services

import (
	"context"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidNotificationType = errors.New("invalid notification type")

// ListOptions - фильтры списка, биндятся прямо из query string.
type ListOptions struct {
	UnreadOnly bool                    `form:"unread_only"`
	Type       models.NotificationType `form:"type"`
}

type MarkResult struct {
	Modified bool `json:"modified"`
}

type MarkAllResult struct {
	ModifiedCount int64 `json:"modified_count"`
}

// NotificationService отдает пользователю общие уведомления с учетом его потока
// и его собственных оверлеев. Per-user копий уведомлений нет.
// Какие экзамены относятся к потоку пользователя, решает каталог экзаменов
// (тот же, из которого генератор берет названия), а не хранилище уведомлений.
type NotificationService struct {
	notifications store.NotificationStore
	users         store.UserDirectory
	exams         store.ExamCatalog
	now           Clock
	log           *logrus.Entry
}

func NewNotificationService(notifications store.NotificationStore, users store.UserDirectory, exams store.ExamCatalog, clock Clock) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		exams:         exams,
		now:           orSystemClock(clock),
		log:           logging.For("notifications"),
	}
}

func (ns *NotificationService) visibility(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, t models.NotificationType) (store.VisibilityQuery, error) {
	user, err := ns.users.GetUser(ctx, userID)
	if err != nil {
		return store.VisibilityQuery{}, err
	}

	q := store.VisibilityQuery{
		UserID:     user.ID,
		Stream:     user.Stream,
		Exams:      map[primitive.ObjectID]string{},
		Now:        ns.now(),
		UnreadOnly: unreadOnly,
		Type:       t,
	}
	if user.Stream == "" {
		return q, nil
	}

	exams, err := ns.exams.ListExamsByStream(ctx, user.Stream)
	if err != nil {
		return q, errors.Wrapf(err, "unable to resolve exams for stream %q", user.Stream)
	}
	q.Exams = store.ExamsForStream(exams, user.Stream)
	return q, nil
}

// ListVisible - уведомления, которые пользователь видит сейчас, по приоритету и новизне.
func (ns *NotificationService) ListVisible(ctx context.Context, userID primitive.ObjectID, opts ListOptions) ([]models.Notification, error) {
	if opts.Type != "" && !opts.Type.IsValid() {
		return nil, errors.Wrapf(ErrInvalidNotificationType, "type %q", opts.Type)
	}

	q, err := ns.visibility(ctx, userID, opts.UnreadOnly, opts.Type)
	if err != nil {
		return nil, err
	}

	notifications, err := ns.notifications.FindVisible(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list notifications")
	}
	return notifications, nil
}

// UnreadCount использует тот же фильтр, что и ListVisible с UnreadOnly.
func (ns *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	q, err := ns.visibility(ctx, userID, true, "")
	if err != nil {
		return 0, err
	}

	count, err := ns.notifications.CountVisible(ctx, q)
	if err != nil {
		return 0, errors.Wrap(err, "unable to count unread notifications")
	}
	return count, nil
}

// MarkAsRead: повторный вызов - успех с Modified=false, несуществующий id - ErrNotificationNotFound.
func (ns *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID primitive.ObjectID) (MarkResult, error) {
	return ns.mark(ctx, notificationID, userID, store.OverlayRead)
}

// MarkAsDeleted скрывает уведомление только для этого пользователя.
func (ns *NotificationService) MarkAsDeleted(ctx context.Context, notificationID, userID primitive.ObjectID) (MarkResult, error) {
	return ns.mark(ctx, notificationID, userID, store.OverlayDeleted)
}

func (ns *NotificationService) mark(ctx context.Context, notificationID, userID primitive.ObjectID, overlay store.Overlay) (MarkResult, error) {
	if _, err := ns.users.GetUser(ctx, userID); err != nil {
		return MarkResult{}, err
	}

	modified, err := ns.notifications.AppendIfAbsent(ctx, notificationID, overlay, userID, ns.now())
	if err != nil {
		return MarkResult{}, err
	}

	ns.log.WithFields(logrus.Fields{
		"notification_id": notificationID.Hex(),
		"user_id":         userID.Hex(),
		"overlay":         overlay,
		"modified":        modified,
	}).Debug("overlay updated")

	return MarkResult{Modified: modified}, nil
}

// MarkAllAsRead помечает прочитанными только то, что было непрочитанным на момент снимка.
// Уведомления, созданные после снимка, не затрагиваются.
func (ns *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (MarkAllResult, error) {
	q, err := ns.visibility(ctx, userID, true, "")
	if err != nil {
		return MarkAllResult{}, err
	}

	unread, err := ns.notifications.FindVisible(ctx, q)
	if err != nil {
		return MarkAllResult{}, errors.Wrap(err, "unable to snapshot unread notifications")
	}

	ids := make([]primitive.ObjectID, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}

	modified, err := ns.notifications.AppendManyIfAbsent(ctx, ids, store.OverlayRead, userID, q.Now)
	if err != nil {
		return MarkAllResult{}, errors.Wrap(err, "unable to mark notifications as read")
	}

	return MarkAllResult{ModifiedCount: modified}, nil
}
