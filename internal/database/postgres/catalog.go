// Package postgres читает справочник экзаменов и дедлайнов из PostgreSQL,
// когда он ведется в отдельной SQL-базе (CATALOG_DRIVER=postgres).
// Идентификаторы хранятся как 24-символьный hex ObjectID, чтобы уведомления
// в MongoDB ссылались на те же ключи.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"edu-alerts-backend/internal/logging"
	"edu-alerts-backend/internal/models"
	"edu-alerts-backend/internal/store"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Catalog struct {
	db *sql.DB
}

var (
	_ store.DeadlineSource = (*Catalog)(nil)
	_ store.ExamCatalog    = (*Catalog)(nil)
)

// Open подключается к базе через драйвер lib/pq и проверяет соединение.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open the catalog database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "unable to reach the catalog database")
	}
	return New(db), nil
}

func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// ActiveDeadlines returns the active deadline rows. Rows with an unparseable ID are skipped.
func (c *Catalog) ActiveDeadlines(ctx context.Context) ([]models.ExamDeadline, error) {
	wrapMsg := "unable to list the active exam deadlines"

	query, args, err := psql().
		Select(
			"id",
			"exam_id",
			"application_start_date",
			"application_end_date",
			"exam_date",
			"admit_card_date",
			"result_date",
			"year",
			"is_active",
		).
		From("exam_deadlines").
		Where(sq.Eq{"is_active": true}).
		OrderBy("exam_id", "year").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	log := logging.For("postgres-catalog")
	var deadlines []models.ExamDeadline
	for rows.Next() {
		var (
			id, examID                                       string
			appStart, appEnd, examDate, admitCard, resultDay pq.NullTime
			d                                                models.ExamDeadline
		)
		err = rows.Scan(&id, &examID, &appStart, &appEnd, &examDate, &admitCard, &resultDay, &d.Year, &d.IsActive)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}

		if d.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			log.WithError(err).WithField("id", id).Warn("skipping deadline with malformed id")
			continue
		}
		if d.ExamID, err = primitive.ObjectIDFromHex(examID); err != nil {
			log.WithError(err).WithField("exam_id", examID).Warn("skipping deadline with malformed exam id")
			continue
		}
		d.ApplicationStartDate = nullTime(appStart)
		d.ApplicationEndDate = nullTime(appEnd)
		d.ExamDate = nullTime(examDate)
		d.AdmitCardDate = nullTime(admitCard)
		d.ResultDate = nullTime(resultDay)

		deadlines = append(deadlines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return deadlines, nil
}

func (c *Catalog) GetExam(ctx context.Context, id primitive.ObjectID) (*models.Exam, error) {
	wrapMsg := fmt.Sprintf("unable to look up exam `%s`", id.Hex())

	query, args, err := psql().
		Select("name", "streams", "created_at", "updated_at").
		From("exams").
		Where(sq.Eq{"id": id.Hex()}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	exam := models.Exam{ID: id}
	var streams pq.StringArray
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&exam.Name, &streams, &exam.CreatedAt, &exam.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrExamNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	exam.Streams = []string(streams)

	return &exam, nil
}

// ListExamsByStream returns the exams whose streams array contains the stream.
func (c *Catalog) ListExamsByStream(ctx context.Context, stream string) ([]models.Exam, error) {
	wrapMsg := fmt.Sprintf("unable to list the exams for stream `%s`", stream)

	exams := []models.Exam{}
	if stream == "" {
		return exams, nil
	}

	query, args, err := psql().
		Select("id", "name", "streams").
		From("exams").
		Where(sq.Expr("? = ANY(streams)", stream)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	log := logging.For("postgres-catalog")
	for rows.Next() {
		var (
			id      string
			streams pq.StringArray
			exam    models.Exam
		)
		if err := rows.Scan(&id, &exam.Name, &streams); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		if exam.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			log.WithError(err).WithField("id", id).Warn("skipping exam with malformed id")
			continue
		}
		exam.Streams = []string(streams)
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return exams, nil
}

func nullTime(t pq.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
