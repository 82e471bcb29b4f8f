package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPriorityForDays(t *testing.T) {
	assert.Equal(t, PriorityHigh, PriorityForDays(1))
	assert.Equal(t, PriorityHigh, PriorityForDays(3))
	assert.Equal(t, PriorityMedium, PriorityForDays(4))
	assert.Equal(t, PriorityMedium, PriorityForDays(7))
	assert.Equal(t, PriorityLow, PriorityForDays(8))

	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestMilestonesSkipUnsetDates(t *testing.T) {
	examDate := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	d := ExamDeadline{
		ExamID:               primitive.NewObjectID(),
		ApplicationStartDate: &start,
		ExamDate:             &examDate,
		Year:                 2026,
	}

	milestones := d.Milestones()
	assert.Equal(t, []Milestone{{Type: NotificationTypeExamDate, Date: examDate}}, milestones)
}

func TestNotificationOverlayLookups(t *testing.T) {
	reader := primitive.NewObjectID()
	other := primitive.NewObjectID()
	n := Notification{
		ReadBy:    map[string]time.Time{reader.Hex(): time.Now()},
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, n.IsReadBy(reader))
	assert.False(t, n.IsReadBy(other))
	assert.False(t, n.IsDeletedBy(reader))
	assert.True(t, n.IsExpired(n.ExpiresAt), "expiry is inclusive")
	assert.False(t, n.IsExpired(n.ExpiresAt.Add(-time.Second)))
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageAlerts())
	assert.True(t, RoleSuperAdmin.CanManageAlerts())
	assert.False(t, RoleModerator.CanManageAlerts())
	assert.False(t, UserRole("ROOT").IsValid())
	assert.False(t, UserRole("ROOT").IsHigherOrEqual(RoleUser))
}

func TestStreams(t *testing.T) {
	exam := Exam{Streams: []string{StreamSciencePCM, StreamSciencePCB}}
	assert.True(t, exam.TargetsStream(StreamSciencePCM))
	assert.False(t, exam.TargetsStream(StreamArts))
	assert.True(t, IsValidStream(StreamCommerce))
	assert.False(t, IsValidStream("astrology"))
}

func TestUserDocumentCarriesOnlyAlertFields(t *testing.T) {
	raw, err := bson.Marshal(User{ID: primitive.NewObjectID(), Email: "a@example.com", Stream: StreamCommerce, Role: RoleUser})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StreamCommerce, doc["stream"])
	assert.NotContains(t, doc, "is_blocked")
}
