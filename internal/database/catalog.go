package database

import (
	"context"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Catalog читает экзамены, дедлайны и пользователей из MongoDB.
type Catalog struct {
	exams     *mongo.Collection
	deadlines *mongo.Collection
	users     *mongo.Collection
}

var (
	_ store.DeadlineSource = (*Catalog)(nil)
	_ store.ExamCatalog    = (*Catalog)(nil)
	_ store.UserDirectory  = (*Catalog)(nil)
)

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		exams:     db.Collection(ExamsCollection),
		deadlines: db.Collection(DeadlinesCollection),
		users:     db.Collection(UsersCollection),
	}
}

// ActiveDeadlines декодирует записи по одной: битая запись пропускается,
// а не валит весь проход генератора.
func (c *Catalog) ActiveDeadlines(ctx context.Context) ([]models.ExamDeadline, error) {
	cursor, err := c.deadlines.Find(ctx, bson.D{{Key: "is_active", Value: true}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query deadlines")
	}
	defer cursor.Close(ctx)

	log := logging.For("catalog")
	var deadlines []models.ExamDeadline
	for cursor.Next(ctx) {
		var d models.ExamDeadline
		if err := cursor.Decode(&d); err != nil {
			log.WithError(err).WithField("raw_id", cursor.Current.Lookup("_id").String()).
				Warn("skipping malformed deadline")
			continue
		}
		deadlines = append(deadlines, d)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate deadlines")
	}
	return deadlines, nil
}

func (c *Catalog) GetExam(ctx context.Context, id primitive.ObjectID) (*models.Exam, error) {
	var exam models.Exam
	err := c.exams.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&exam)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrExamNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load exam")
	}
	return &exam, nil
}

// ListExamsByStream - экзамены, у которых streams содержит stream.
func (c *Catalog) ListExamsByStream(ctx context.Context, stream string) ([]models.Exam, error) {
	exams := []models.Exam{}
	if stream == "" {
		return exams, nil
	}

	cursor, err := c.exams.Find(ctx,
		bson.D{{Key: "streams", Value: stream}},
		options.Find().SetProjection(bson.D{{Key: "name", Value: 1}, {Key: "streams", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query exams by stream")
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &exams); err != nil {
		return nil, errors.Wrap(err, "failed to decode exams")
	}
	return exams, nil
}

func (c *Catalog) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := c.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	return &user, nil
}

func (c *Catalog) ListUserIDsByStreams(ctx context.Context, streams []string) ([]primitive.ObjectID, error) {
	if len(streams) == 0 {
		return nil, nil
	}

	cursor, err := c.users.Find(ctx,
		bson.D{{Key: "stream", Value: bson.D{{Key: "$in", Value: streams}}}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users by stream")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to decode user ids")
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
