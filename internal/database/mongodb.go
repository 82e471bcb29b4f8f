// internal/database/mongodb.go
package database

import (
	"context"
	"time"

	"edu-alerts-backend/internal/config"
	"edu-alerts-backend/internal/logging"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Коллекции
const (
	NotificationsCollection = "notifications"
	ExamsCollection         = "exams"
	DeadlinesCollection     = "exam_deadlines"
	UsersCollection         = "users"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	// Настройки клиента
	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка подключения к MongoDB")
	}

	// Проверка подключения
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "ошибка пинга MongoDB")
	}

	logging.For("mongodb").Infof("Успешно подключен к MongoDB: %s", cfg.DatabaseName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.DatabaseName),
	}, nil
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "ошибка отключения от MongoDB")
	}

	logging.For("mongodb").Info("Отключен от MongoDB")
	return nil
}

// collectionIndexes - индексы одной коллекции.
// ВАЖНО: bson.D вместо map, порядок ключей в составном индексе имеет значение
type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

// notificationIndexes - индексы, на которых держатся инварианты хранилища:
// уникальный ключ генератора и TTL по expires_at. Без них работать нельзя.
func notificationIndexes() collectionIndexes {
	return collectionIndexes{
		collection: NotificationsCollection,
		models: []mongo.IndexModel{
			{
				// Ключ идемпотентности генератора: одна запись на этап экзамена и дату
				Keys: bson.D{
					{Key: "exam_id", Value: 1},
					{Key: "type", Value: 1},
					{Key: "deadline_date", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("alert_key"),
			},
			{
				// TTL: документ удаляется, как только наступает expires_at
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
			},
			{
				Keys: bson.D{{Key: "deadline_date", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "created_at", Value: -1}},
			},
		},
	}
}

// catalogIndexes - только ускоряют чтение чужих коллекций (экзамены, дедлайны,
// пользователи). Уникальных среди них нет: данными владеет другой сервис.
func catalogIndexes() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: ExamsCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "streams", Value: 1}}},
			},
		},
		{
			collection: DeadlinesCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "exam_id", Value: 1}}},
			},
		},
		{
			collection: UsersCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "stream", Value: 1}}},
			},
		},
	}
}

// CreateIndexes сначала создает индексы уведомлений; ошибка здесь фатальна.
// Ошибки индексов справочников только логируются.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	log := logging.For("mongodb")

	spec := notificationIndexes()
	if _, err := m.Database.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models); err != nil {
		return errors.Wrapf(err, "ошибка создания индексов для %s", spec.collection)
	}

	for _, spec := range catalogIndexes() {
		if _, err := m.Database.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models); err != nil {
			log.WithError(err).Warnf("⚠️  Не удалось создать индексы для %s", spec.collection)
		}
	}

	log.Info("✅ Индексы созданы")
	return nil
}
