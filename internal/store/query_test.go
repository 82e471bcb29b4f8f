package store

import (
	"testing"
	"time"

	"edu-alerts-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVisibilityQueryMatches(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	user := primitive.NewObjectID()
	exam := primitive.NewObjectID()

	fresh := func() *models.Notification {
		return &models.Notification{
			ExamID:    exam,
			Type:      models.NotificationTypeExamDate,
			ExpiresAt: now.Add(time.Hour),
		}
	}
	q := VisibilityQuery{
		UserID: user,
		Stream: models.StreamSciencePCM,
		Exams:  map[primitive.ObjectID]string{exam: "JEE Main"},
		Now:    now,
	}

	assert.True(t, q.Matches(fresh()))

	otherStream := q
	otherStream.Exams = map[primitive.ObjectID]string{}
	assert.False(t, otherStream.Matches(fresh()), "exam outside the user's stream")

	noStream := q
	noStream.Stream = ""
	assert.False(t, noStream.Matches(fresh()))

	expired := fresh()
	expired.ExpiresAt = now
	assert.False(t, q.Matches(expired))

	hidden := fresh()
	hidden.DeletedBy = map[string]time.Time{user.Hex(): now}
	assert.False(t, q.Matches(hidden))

	read := fresh()
	read.ReadBy = map[string]time.Time{user.Hex(): now}
	assert.True(t, q.Matches(read))
	unread := q
	unread.UnreadOnly = true
	assert.False(t, unread.Matches(read))

	typed := q
	typed.Type = models.NotificationTypeResultDate
	assert.False(t, typed.Matches(fresh()))
}

func TestExamsForStream(t *testing.T) {
	pcm := models.Exam{ID: primitive.NewObjectID(), Name: "JEE Main", Streams: []string{models.StreamSciencePCM, models.StreamSciencePCB}}
	arts := models.Exam{ID: primitive.NewObjectID(), Name: "CLAT", Streams: []string{models.StreamArts}}

	exams := ExamsForStream([]models.Exam{pcm, arts}, models.StreamSciencePCM)

	assert.Equal(t, map[primitive.ObjectID]string{pcm.ID: "JEE Main"}, exams)
	assert.Empty(t, ExamsForStream([]models.Exam{pcm, arts}, ""))
}

func TestExamIDsAreOrdered(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	q := VisibilityQuery{Exams: map[primitive.ObjectID]string{c: "c", a: "a", b: "b"}}

	assert.Equal(t, []primitive.ObjectID{a, b, c}, q.ExamIDs())
}

func TestSortVisible(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	ns := []models.Notification{
		{Title: "low", Priority: models.PriorityLow, CreatedAt: base.Add(3 * time.Hour)},
		{Title: "medium-old", Priority: models.PriorityMedium, CreatedAt: base},
		{Title: "high-old", Priority: models.PriorityHigh, CreatedAt: base},
		{Title: "medium-new", Priority: models.PriorityMedium, CreatedAt: base.Add(time.Hour)},
		{Title: "high-new", Priority: models.PriorityHigh, CreatedAt: base.Add(time.Hour)},
	}

	SortVisible(ns)

	var titles []string
	for _, n := range ns {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"high-new", "high-old", "medium-new", "medium-old", "low"}, titles)
}

func TestNewAlertKeyNormalizesDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	date := time.Date(2026, 11, 1, 9, 0, 0, 123456789, loc)

	key := NewAlertKey(primitive.NewObjectID(), models.NotificationTypeExamDate, date)

	assert.Equal(t, time.UTC, key.DeadlineDate.Location())
	assert.Equal(t, 123000000, key.DeadlineDate.Nanosecond())
	assert.True(t, key.DeadlineDate.Equal(date.Truncate(time.Millisecond)))
}
