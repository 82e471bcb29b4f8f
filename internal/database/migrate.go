package database

import (
	"context"
	"time"

	"edu-alerts-backend/internal/logging"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BackfillExpiry проставляет expires_at уведомлениям, созданным до появления TTL:
// без него TTL-индекс их никогда не удалит.
func BackfillExpiry(ctx context.Context, db *mongo.Database, retention time.Duration) (int64, error) {
	result, err := db.Collection(NotificationsCollection).UpdateMany(
		ctx,
		bson.M{
			"$or": []bson.M{
				{"expires_at": bson.M{"$exists": false}},
				{"expires_at": nil},
			},
		},
		// Update pipeline: значение считается из deadline_date самого документа
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"expires_at": bson.M{"$add": bson.A{"$deadline_date", retention.Milliseconds()}},
			}}},
		},
	)
	if err != nil {
		return 0, errors.Wrap(err, "ошибка миграции expires_at")
	}

	if result.ModifiedCount > 0 {
		logging.For("migrate").Infof("Проставлен expires_at для %d уведомлений", result.ModifiedCount)
	}
	return result.ModifiedCount, nil
}
