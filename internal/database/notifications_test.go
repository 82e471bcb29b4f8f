package database

import (
	"context"
	"testing"
	"time"

	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func testKey() store.AlertKey {
	return store.NewAlertKey(primitive.NewObjectID(), models.NotificationTypeExamDate, now.Add(72*time.Hour))
}

func TestNotificationStoreUpsertByKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{
				{Key: "index", Value: 0},
				{Key: "_id", Value: primitive.NewObjectID()},
			}}},
		))

		created, err := s.UpsertByKey(context.Background(), testKey(), store.AlertFields{Title: "t"}, now)
		require.NoError(mt, err)
		assert.True(mt, created)
	})

	mt.Run("updated", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		created, err := s.UpsertByKey(context.Background(), testKey(), store.AlertFields{Title: "t"}, now)
		require.NoError(mt, err)
		assert.False(mt, created)
	})

	mt.Run("duplicate key retried as update", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		created, err := s.UpsertByKey(context.Background(), testKey(), store.AlertFields{Title: "t"}, now)
		require.NoError(mt, err)
		assert.False(mt, created)
	})

	mt.Run("other write error", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 2, Message: "bad value"}))

		_, err := s.UpsertByKey(context.Background(), testKey(), store.AlertFields{}, now)
		assert.Error(mt, err)
	})
}

func TestNotificationStoreRefreshByKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		matched, err := s.RefreshByKey(context.Background(), testKey(), store.AlertFields{}, now)
		require.NoError(mt, err)
		assert.False(mt, matched)
	})
}

func TestNotificationStoreAppendIfAbsent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "test.notifications"

	mt.Run("added", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		added, err := s.AppendIfAbsent(context.Background(), primitive.NewObjectID(), store.OverlayRead, primitive.NewObjectID(), now)
		require.NoError(mt, err)
		assert.True(mt, added)
	})

	mt.Run("already present", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: id}}),
		)

		added, err := s.AppendIfAbsent(context.Background(), id, store.OverlayDeleted, primitive.NewObjectID(), now)
		require.NoError(mt, err)
		assert.False(mt, added)
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := s.AppendIfAbsent(context.Background(), primitive.NewObjectID(), store.OverlayRead, primitive.NewObjectID(), now)
		assert.ErrorIs(mt, err, store.ErrNotificationNotFound)
	})

	mt.Run("unknown overlay", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)

		_, err := s.AppendIfAbsent(context.Background(), primitive.NewObjectID(), store.Overlay("pinned_by"), primitive.NewObjectID(), now)
		assert.Error(mt, err)
	})
}

func TestNotificationStoreAppendManyIfAbsent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty snapshot skips the query", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)

		modified, err := s.AppendManyIfAbsent(context.Background(), nil, store.OverlayRead, primitive.NewObjectID(), now)
		require.NoError(mt, err)
		assert.Zero(mt, modified)
	})

	mt.Run("counts modified", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}))

		ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
		modified, err := s.AppendManyIfAbsent(context.Background(), ids, store.OverlayRead, primitive.NewObjectID(), now)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), modified)
	})
}

func TestNotificationStoreFindAndCountVisible(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "test.notifications"
	exam := primitive.NewObjectID()
	q := store.VisibilityQuery{
		UserID: primitive.NewObjectID(),
		Stream: models.StreamCommerce,
		Exams:  map[primitive.ObjectID]string{exam: "CUET"},
		Now:    now,
	}

	mt.Run("decodes computed fields and names the exam", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "exam_id", Value: exam},
				{Key: "title", Value: "CUET application closes in 1 day"},
				{Key: "priority", Value: "high"},
				{Key: "is_read", Value: true},
			},
		))

		list, err := s.FindVisible(context.Background(), q)
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		assert.Equal(mt, "CUET", list[0].ExamName)
		assert.True(mt, list[0].IsRead)
		assert.Equal(mt, models.PriorityHigh, list[0].Priority)
	})

	mt.Run("count", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "total", Value: int64(4)}}))

		count, err := s.CountVisible(context.Background(), q)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), count)
	})

	mt.Run("count of nothing", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		count, err := s.CountVisible(context.Background(), q)
		require.NoError(mt, err)
		assert.Zero(mt, count)
	})

	mt.Run("user without stream sees nothing", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		noStream := q
		noStream.Stream = ""

		list, err := s.FindVisible(context.Background(), noStream)
		require.NoError(mt, err)
		assert.Empty(mt, list)
	})

	mt.Run("stream without exams sees nothing", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		noExams := q
		noExams.Exams = nil

		count, err := s.CountVisible(context.Background(), noExams)
		require.NoError(mt, err)
		assert.Zero(mt, count)
	})
}

func TestNotificationStoreDeletes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deadline passed", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		deleted, err := s.DeleteDeadlinePassed(context.Background(), now)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), deleted)
	})

	mt.Run("by ids", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		deleted, err := s.DeleteByIDs(context.Background(), []primitive.ObjectID{primitive.NewObjectID()})
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), deleted)
	})
}

func TestNotificationStoreStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("facets", func(mt *mtest.T) {
		s := NewNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.notifications", mtest.FirstBatch, bson.D{
			{Key: "by_type", Value: bson.A{
				bson.D{{Key: "_id", Value: "exam_date"}, {Key: "count", Value: int64(2)}},
				bson.D{{Key: "_id", Value: "result_date"}, {Key: "count", Value: int64(1)}},
			}},
			{Key: "by_priority", Value: bson.A{
				bson.D{{Key: "_id", Value: "high"}, {Key: "count", Value: int64(3)}},
			}},
		}))

		stats, err := s.Stats(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), stats.Total)
		assert.Equal(mt, int64(2), stats.ByType["exam_date"])
		assert.Equal(mt, int64(3), stats.ByPriority["high"])
	})
}
