package database

import (
	"context"
	"time"

	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationStore хранит широковещательные уведомления в MongoDB.
type NotificationStore struct {
	collection *mongo.Collection
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{collection: db.Collection(NotificationsCollection)}
}

func keyFilter(key store.AlertKey) bson.D {
	key = store.NewAlertKey(key.ExamID, key.Type, key.DeadlineDate)
	return bson.D{
		{Key: "exam_id", Value: key.ExamID},
		{Key: "type", Value: key.Type},
		{Key: "deadline_date", Value: key.DeadlineDate},
	}
}

func setFields(f store.AlertFields, now time.Time) bson.D {
	return bson.D{
		{Key: "deadline_id", Value: f.DeadlineID},
		{Key: "title", Value: f.Title},
		{Key: "message", Value: f.Message},
		{Key: "days_remaining", Value: f.DaysRemaining},
		{Key: "priority", Value: f.Priority},
		{Key: "expires_at", Value: f.ExpiresAt},
		{Key: "updated_at", Value: now},
	}
}

func (s *NotificationStore) UpsertByKey(ctx context.Context, key store.AlertKey, fields store.AlertFields, now time.Time) (bool, error) {
	filter := keyFilter(key)
	update := bson.D{
		{Key: "$set", Value: setFields(fields, now)},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "created_at", Value: now},
			{Key: "read_by", Value: bson.D{}},
			{Key: "deleted_by", Value: bson.D{}},
		}},
	}

	res, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Параллельный upsert успел вставить документ первым, повторяем как обычное обновление
		if _, err := s.collection.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: setFields(fields, now)}}); err != nil {
			return false, errors.Wrap(err, "failed to update notification after duplicate key")
		}
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to upsert notification")
	}

	return res.UpsertedCount > 0, nil
}

func (s *NotificationStore) RefreshByKey(ctx context.Context, key store.AlertKey, fields store.AlertFields, now time.Time) (bool, error) {
	res, err := s.collection.UpdateOne(ctx, keyFilter(key), bson.D{{Key: "$set", Value: setFields(fields, now)}})
	if err != nil {
		return false, errors.Wrap(err, "failed to refresh notification")
	}
	return res.MatchedCount > 0, nil
}

func (s *NotificationStore) AppendIfAbsent(ctx context.Context, id primitive.ObjectID, overlay store.Overlay, userID primitive.ObjectID, at time.Time) (bool, error) {
	if !overlay.IsValid() {
		return false, errors.Errorf("unknown overlay %q", overlay)
	}

	path := overlayPath(overlay, userID.Hex())
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: path, Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: path, Value: at}}}}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.Wrapf(err, "failed to update %s", overlay)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Ничего не совпало: либо запись пользователя уже есть, либо нет самого уведомления
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}},
		options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})).Err()
	if err == mongo.ErrNoDocuments {
		return false, store.ErrNotificationNotFound
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to look up notification")
	}
	return false, nil
}

func (s *NotificationStore) AppendManyIfAbsent(ctx context.Context, ids []primitive.ObjectID, overlay store.Overlay, userID primitive.ObjectID, at time.Time) (int64, error) {
	if !overlay.IsValid() {
		return 0, errors.Errorf("unknown overlay %q", overlay)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	path := overlayPath(overlay, userID.Hex())
	filter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: path, Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: path, Value: at}}}}

	res, err := s.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to update %s", overlay)
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) FindVisible(ctx context.Context, q store.VisibilityQuery) ([]models.Notification, error) {
	notifications := []models.Notification{}
	if q.Stream == "" || len(q.Exams) == 0 {
		return notifications, nil
	}

	cursor, err := s.collection.Aggregate(ctx, listPipeline(q))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query notifications")
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, errors.Wrap(err, "failed to decode notifications")
	}
	for i := range notifications {
		notifications[i].ExamName = q.Exams[notifications[i].ExamID]
	}
	return notifications, nil
}

func (s *NotificationStore) CountVisible(ctx context.Context, q store.VisibilityQuery) (int64, error) {
	if q.Stream == "" || len(q.Exams) == 0 {
		return 0, nil
	}

	cursor, err := s.collection.Aggregate(ctx, countPipeline(q))
	if err != nil {
		return 0, errors.Wrap(err, "failed to count notifications")
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, errors.Wrap(err, "failed to decode count")
	}
	// $count ничего не возвращает, если документов нет
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (s *NotificationStore) DeleteDeadlinePassed(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.D{{Key: "deadline_date", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete passed notifications")
	}
	return res.DeletedCount, nil
}

func (s *NotificationStore) FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Notification, error) {
	cursor, err := s.collection.Find(ctx, bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: cutoff}}}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query old notifications")
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, errors.Wrap(err, "failed to decode old notifications")
	}
	return notifications, nil
}

func (s *NotificationStore) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.collection.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete notifications")
	}
	return res.DeletedCount, nil
}

// Stats - разбивка по типу и приоритету одним запросом через $facet.
func (s *NotificationStore) Stats(ctx context.Context) (*store.NotificationStats, error) {
	groupBy := func(field string) bson.A {
		return bson.A{bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "by_type", Value: groupBy("type")},
			{Key: "by_priority", Value: groupBy("priority")},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate stats")
	}
	defer cursor.Close(ctx)

	type bucket struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	var facets []struct {
		ByType     []bucket `bson:"by_type"`
		ByPriority []bucket `bson:"by_priority"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, errors.Wrap(err, "failed to decode stats")
	}

	stats := &store.NotificationStats{
		ByType:     map[string]int64{},
		ByPriority: map[string]int64{},
	}
	if len(facets) == 0 {
		return stats, nil
	}
	for _, b := range facets[0].ByType {
		stats.ByType[b.ID] = b.Count
		stats.Total += b.Count
	}
	for _, b := range facets[0].ByPriority {
		stats.ByPriority[b.ID] = b.Count
	}
	return stats, nil
}

func (s *NotificationStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}
