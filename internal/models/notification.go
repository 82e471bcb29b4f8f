package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification - широковещательное уведомление о дедлайне экзамена.
// Одна запись на (exam_id, type, deadline_date), общая для всех получателей;
// состояние конкретного пользователя хранится в ReadBy и DeletedBy.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ExamID     primitive.ObjectID `bson:"exam_id" json:"exam_id"`
	DeadlineID primitive.ObjectID `bson:"deadline_id" json:"deadline_id"`
	Type       NotificationType   `bson:"type" json:"type"`

	Title   string `bson:"title" json:"title"`
	Message string `bson:"message" json:"message"`

	DeadlineDate  time.Time `bson:"deadline_date" json:"deadline_date"`
	DaysRemaining int       `bson:"days_remaining" json:"days_remaining"`
	Priority      Priority  `bson:"priority" json:"priority"`

	// Ключ - hex ID пользователя, поэтому один пользователь не может попасть дважды
	ReadBy    map[string]time.Time `bson:"read_by,omitempty" json:"-"`
	DeletedBy map[string]time.Time `bson:"deleted_by,omitempty" json:"-"`

	// Заполняются только на чтении, для конкретного пользователя
	ExamName string `bson:"exam_name,omitempty" json:"exam_name,omitempty"`
	IsRead   bool   `bson:"is_read,omitempty" json:"is_read"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// Типи сповіщень
type NotificationType string

const (
	NotificationTypeApplicationDeadline NotificationType = "application_deadline"
	NotificationTypeExamDate            NotificationType = "exam_date"
	NotificationTypeAdmitCard           NotificationType = "admit_card"
	NotificationTypeResultDate          NotificationType = "result_date"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeApplicationDeadline, NotificationTypeExamDate,
		NotificationTypeAdmitCard, NotificationTypeResultDate:
		return true
	}
	return false
}

func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationTypeApplicationDeadline,
		NotificationTypeExamDate,
		NotificationTypeAdmitCard,
		NotificationTypeResultDate,
	}
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityForDays: <=3 дней - high, <=7 - medium, иначе low.
func PriorityForDays(days int) Priority {
	switch {
	case days <= 3:
		return PriorityHigh
	case days <= 7:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank используется для сортировки: high раньше medium, medium раньше low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// DefaultRetention - сколько уведомление живет после даты дедлайна (TTL по expires_at).
const DefaultRetention = 30 * 24 * time.Hour

// Методы для работы с уведомлениями

func (n *Notification) IsExpired(now time.Time) bool {
	return !n.ExpiresAt.After(now)
}

func (n *Notification) IsReadBy(userID primitive.ObjectID) bool {
	_, ok := n.ReadBy[userID.Hex()]
	return ok
}

func (n *Notification) IsDeletedBy(userID primitive.ObjectID) bool {
	_, ok := n.DeletedBy[userID.Hex()]
	return ok
}
