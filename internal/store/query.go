package store

import (
	"bytes"
	"sort"
	"time"

	"edu-alerts-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VisibilityQuery - типизированный фильтр "что видит пользователь".
// Один и тот же фильтр используется для списка и для счетчика,
// поэтому счетчик непрочитанных всегда совпадает с длиной списка.
//
// Exams - экзамены, чей набор потоков содержит Stream (id -> название). Его
// заполняет сервис из ExamCatalog, поэтому хранилищу уведомлений не нужен
// доступ к каталогу экзаменов.
type VisibilityQuery struct {
	UserID     primitive.ObjectID
	Stream     string
	Exams      map[primitive.ObjectID]string
	Now        time.Time
	UnreadOnly bool
	Type       models.NotificationType // пусто - любой тип
}

// ExamIDs - ключи Exams в стабильном порядке.
func (q VisibilityQuery) ExamIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(q.Exams))
	for id := range q.Exams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Matches применяет фильтр к уведомлению. Уведомление экзамена не из Exams
// (другой поток или экзамен удален из каталога) никому не показывается.
func (q VisibilityQuery) Matches(n *models.Notification) bool {
	if q.Stream == "" {
		return false
	}
	if _, ok := q.Exams[n.ExamID]; !ok {
		return false
	}
	if n.IsExpired(q.Now) || n.IsDeletedBy(q.UserID) {
		return false
	}
	if q.Type != "" && n.Type != q.Type {
		return false
	}
	if q.UnreadOnly && n.IsReadBy(q.UserID) {
		return false
	}
	return true
}

// ExamsForStream строит Exams из списка экзаменов каталога.
func ExamsForStream(exams []models.Exam, stream string) map[primitive.ObjectID]string {
	out := make(map[primitive.ObjectID]string, len(exams))
	for _, e := range exams {
		if e.TargetsStream(stream) {
			out[e.ID] = e.Name
		}
	}
	return out
}

// SortVisible: сначала по приоритету (high, medium, low), затем новые раньше старых.
func SortVisible(ns []models.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		a, b := ns[i], ns[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})
}
