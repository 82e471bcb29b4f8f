// Package store описывает хранилище уведомлений и внешние источники данных
// (дедлайны, экзамены, пользователи), не привязываясь к конкретной базе.
package store

import (
	"context"
	"errors"
	"time"

	"edu-alerts-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrExamNotFound         = errors.New("exam not found")
)

// Overlay - имя per-user оверлея внутри уведомления.
type Overlay string

const (
	OverlayRead    Overlay = "read_by"
	OverlayDeleted Overlay = "deleted_by"
)

func (o Overlay) IsValid() bool {
	return o == OverlayRead || o == OverlayDeleted
}

// AlertKey однозначно определяет уведомление: какой этап, какого экзамена, на какую дату.
type AlertKey struct {
	ExamID       primitive.ObjectID
	Type         models.NotificationType
	DeadlineDate time.Time
}

// NewAlertKey приводит дату к UTC с точностью BSON datetime (миллисекунды),
// иначе ключ из памяти не совпадет с ключом, прочитанным из базы.
func NewAlertKey(examID primitive.ObjectID, t models.NotificationType, deadline time.Time) AlertKey {
	return AlertKey{
		ExamID:       examID,
		Type:         t,
		DeadlineDate: deadline.UTC().Truncate(time.Millisecond),
	}
}

// AlertFields - поля, которые генератор пересчитывает на каждом проходе.
type AlertFields struct {
	DeadlineID    primitive.ObjectID
	Title         string
	Message       string
	DaysRemaining int
	Priority      models.Priority
	ExpiresAt     time.Time
}

type NotificationStats struct {
	Total      int64            `json:"total"`
	ByType     map[string]int64 `json:"by_type"`
	ByPriority map[string]int64 `json:"by_priority"`
}

type NotificationStore interface {
	// UpsertByKey атомарно находит или создает уведомление по ключу и перезаписывает поля.
	// Возвращает true, если документ был создан.
	UpsertByKey(ctx context.Context, key AlertKey, fields AlertFields, now time.Time) (bool, error)
	// RefreshByKey обновляет только существующее уведомление, ничего не создавая.
	RefreshByKey(ctx context.Context, key AlertKey, fields AlertFields, now time.Time) (bool, error)

	// AppendIfAbsent добавляет запись пользователя в оверлей, если ее там еще нет.
	// false без ошибки - запись уже была; ErrNotificationNotFound - нет такого уведомления.
	AppendIfAbsent(ctx context.Context, id primitive.ObjectID, overlay Overlay, userID primitive.ObjectID, at time.Time) (bool, error)
	// AppendManyIfAbsent делает то же для набора уведомлений и возвращает число реально измененных.
	AppendManyIfAbsent(ctx context.Context, ids []primitive.ObjectID, overlay Overlay, userID primitive.ObjectID, at time.Time) (int64, error)

	FindVisible(ctx context.Context, q VisibilityQuery) ([]models.Notification, error)
	CountVisible(ctx context.Context, q VisibilityQuery) (int64, error)

	DeleteDeadlinePassed(ctx context.Context, now time.Time) (int64, error)
	FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Notification, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)

	Stats(ctx context.Context) (*NotificationStats, error)
	Ping(ctx context.Context) error
}

// DeadlineSource отдает активные записи дедлайнов.
type DeadlineSource interface {
	ActiveDeadlines(ctx context.Context) ([]models.ExamDeadline, error)
}

type ExamCatalog interface {
	GetExam(ctx context.Context, id primitive.ObjectID) (*models.Exam, error)
	// ListExamsByStream - экзамены, нацеленные на поток.
	ListExamsByStream(ctx context.Context, stream string) ([]models.Exam, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUserIDsByStreams(ctx context.Context, streams []string) ([]primitive.ObjectID, error)
}
