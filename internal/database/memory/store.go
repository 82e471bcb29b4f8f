// Package memory - хранилище в памяти процесса. Используется в тестах и при STORE_DRIVER=memory.
// Реализует все интерфейсы пакета store.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.RWMutex
	notifications map[primitive.ObjectID]*models.Notification
	byKey         map[store.AlertKey]primitive.ObjectID
	exams         map[primitive.ObjectID]models.Exam
	deadlines     []models.ExamDeadline
	users         map[primitive.ObjectID]models.User
}

func New() *Store {
	return &Store{
		notifications: make(map[primitive.ObjectID]*models.Notification),
		byKey:         make(map[store.AlertKey]primitive.ObjectID),
		exams:         make(map[primitive.ObjectID]models.Exam),
		users:         make(map[primitive.ObjectID]models.User),
	}
}

var (
	_ store.NotificationStore = (*Store)(nil)
	_ store.DeadlineSource    = (*Store)(nil)
	_ store.ExamCatalog       = (*Store)(nil)
	_ store.UserDirectory     = (*Store)(nil)
)

// Наполнение справочников

func (s *Store) AddExam(exam models.Exam) models.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exam.ID.IsZero() {
		exam.ID = primitive.NewObjectID()
	}
	s.exams[exam.ID] = exam
	return exam
}

func (s *Store) AddDeadline(d models.ExamDeadline) models.ExamDeadline {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	s.deadlines = append(s.deadlines, d)
	return d
}

func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.ID] = u
	return u
}

// Get возвращает копию уведомления по ID (для тестов и отладки).
func (s *Store) Get(id primitive.ObjectID) (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return models.Notification{}, false
	}
	return clone(n), true
}

// All возвращает копии всех уведомлений в порядке создания.
func (s *Store) All() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// NotificationStore

func (s *Store) UpsertByKey(_ context.Context, key store.AlertKey, fields store.AlertFields, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = store.NewAlertKey(key.ExamID, key.Type, key.DeadlineDate)
	if id, ok := s.byKey[key]; ok {
		applyFields(s.notifications[id], fields, now)
		return false, nil
	}

	n := &models.Notification{
		ID:           primitive.NewObjectID(),
		ExamID:       key.ExamID,
		Type:         key.Type,
		DeadlineDate: key.DeadlineDate,
		ReadBy:       map[string]time.Time{},
		DeletedBy:    map[string]time.Time{},
		CreatedAt:    now,
	}
	applyFields(n, fields, now)
	s.notifications[n.ID] = n
	s.byKey[key] = n.ID
	return true, nil
}

func (s *Store) RefreshByKey(_ context.Context, key store.AlertKey, fields store.AlertFields, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = store.NewAlertKey(key.ExamID, key.Type, key.DeadlineDate)
	id, ok := s.byKey[key]
	if !ok {
		return false, nil
	}
	applyFields(s.notifications[id], fields, now)
	return true, nil
}

func (s *Store) AppendIfAbsent(_ context.Context, id primitive.ObjectID, overlay store.Overlay, userID primitive.ObjectID, at time.Time) (bool, error) {
	if !overlay.IsValid() {
		return false, errors.Errorf("unknown overlay %q", overlay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return false, store.ErrNotificationNotFound
	}
	return appendOverlay(n, overlay, userID, at), nil
}

func (s *Store) AppendManyIfAbsent(_ context.Context, ids []primitive.ObjectID, overlay store.Overlay, userID primitive.ObjectID, at time.Time) (int64, error) {
	if !overlay.IsValid() {
		return 0, errors.Errorf("unknown overlay %q", overlay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, id := range ids {
		n, ok := s.notifications[id]
		if !ok {
			continue
		}
		if appendOverlay(n, overlay, userID, at) {
			modified++
		}
	}
	return modified, nil
}

func (s *Store) FindVisible(_ context.Context, q store.VisibilityQuery) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.visible(q), nil
}

func (s *Store) CountVisible(_ context.Context, q store.VisibilityQuery) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.visible(q))), nil
}

func (s *Store) visible(q store.VisibilityQuery) []models.Notification {
	out := []models.Notification{}
	for _, n := range s.notifications {
		if !q.Matches(n) {
			continue
		}

		view := clone(n)
		view.ExamName = q.Exams[n.ExamID]
		view.IsRead = n.IsReadBy(q.UserID)
		// оверлеи других пользователей наружу не отдаем
		view.ReadBy = nil
		view.DeletedBy = nil
		out = append(out, view)
	}
	store.SortVisible(out)
	return out
}

func (s *Store) DeleteDeadlinePassed(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.notifications {
		if n.DeadlineDate.Before(now) {
			s.remove(id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) FindCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.notifications {
		if n.CreatedAt.Before(cutoff) {
			out = append(out, clone(n))
		}
	}
	return out, nil
}

func (s *Store) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.notifications[id]; ok {
			s.remove(id)
			deleted++
		}
	}
	return deleted, nil
}

// Expire имитирует TTL-индекс: удаляет все, у чего expires_at <= now.
func (s *Store) Expire(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.notifications {
		if n.IsExpired(now) {
			s.remove(id)
			deleted++
		}
	}
	return deleted
}

func (s *Store) Stats(_ context.Context) (*store.NotificationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &store.NotificationStats{
		ByType:     map[string]int64{},
		ByPriority: map[string]int64{},
	}
	for _, n := range s.notifications {
		stats.Total++
		stats.ByType[string(n.Type)]++
		stats.ByPriority[string(n.Priority)]++
	}
	return stats, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// DeadlineSource / ExamCatalog / UserDirectory

func (s *Store) ActiveDeadlines(context.Context) ([]models.ExamDeadline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ExamDeadline
	for _, d := range s.deadlines {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) GetExam(_ context.Context, id primitive.ObjectID) (*models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exam, ok := s.exams[id]
	if !ok {
		return nil, store.ErrExamNotFound
	}
	return &exam, nil
}

func (s *Store) ListExamsByStream(_ context.Context, stream string) ([]models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Exam{}
	for _, exam := range s.exams {
		if exam.TargetsStream(stream) {
			out = append(out, exam)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

func (s *Store) ListUserIDsByStreams(_ context.Context, streams []string) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(streams))
	for _, st := range streams {
		wanted[st] = struct{}{}
	}

	var out []primitive.ObjectID
	for id, u := range s.users {
		if _, ok := wanted[u.Stream]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Вспомогательные функции

func (s *Store) remove(id primitive.ObjectID) {
	n := s.notifications[id]
	delete(s.byKey, store.NewAlertKey(n.ExamID, n.Type, n.DeadlineDate))
	delete(s.notifications, id)
}

func applyFields(n *models.Notification, f store.AlertFields, now time.Time) {
	n.DeadlineID = f.DeadlineID
	n.Title = f.Title
	n.Message = f.Message
	n.DaysRemaining = f.DaysRemaining
	n.Priority = f.Priority
	n.ExpiresAt = f.ExpiresAt
	n.UpdatedAt = now
}

func appendOverlay(n *models.Notification, overlay store.Overlay, userID primitive.ObjectID, at time.Time) bool {
	target := &n.ReadBy
	if overlay == store.OverlayDeleted {
		target = &n.DeletedBy
	}
	if *target == nil {
		*target = map[string]time.Time{}
	}

	key := userID.Hex()
	if _, exists := (*target)[key]; exists {
		return false
	}
	(*target)[key] = at
	return true
}

func clone(n *models.Notification) models.Notification {
	out := *n
	out.ReadBy = cloneOverlay(n.ReadBy)
	out.DeletedBy = cloneOverlay(n.DeletedBy)
	return out
}

func cloneOverlay(in map[string]time.Time) map[string]time.Time {
	if in == nil {
		return nil
	}
	out := make(map[string]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
