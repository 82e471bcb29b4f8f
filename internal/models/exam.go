package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Потоки (streams) - академические направления, по которым таргетируются уведомления
const (
	StreamSciencePCM = "science_pcm"
	StreamSciencePCB = "science_pcb"
	StreamCommerce   = "commerce"
	StreamArts       = "arts"
	StreamVocational = "vocational"
)

func AllStreams() []string {
	return []string{StreamSciencePCM, StreamSciencePCB, StreamCommerce, StreamArts, StreamVocational}
}

func IsValidStream(stream string) bool {
	for _, s := range AllStreams() {
		if s == stream {
			return true
		}
	}
	return false
}

type Exam struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name" validate:"required"`
	Streams   []string           `bson:"streams" json:"streams"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (e *Exam) TargetsStream(stream string) bool {
	for _, s := range e.Streams {
		if s == stream {
			return true
		}
	}
	return false
}

// ExamDeadline - даты этапов экзамена на конкретный год.
type ExamDeadline struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ExamID primitive.ObjectID `bson:"exam_id" json:"exam_id" validate:"required"`

	ApplicationStartDate *time.Time `bson:"application_start_date,omitempty" json:"application_start_date,omitempty"`
	ApplicationEndDate   *time.Time `bson:"application_end_date,omitempty" json:"application_end_date,omitempty"`
	ExamDate             *time.Time `bson:"exam_date,omitempty" json:"exam_date,omitempty"`
	AdmitCardDate        *time.Time `bson:"admit_card_date,omitempty" json:"admit_card_date,omitempty"`
	ResultDate           *time.Time `bson:"result_date,omitempty" json:"result_date,omitempty"`

	Year     int  `bson:"year" json:"year" validate:"required,min=2000,max=2100"`
	IsActive bool `bson:"is_active" json:"is_active"`
}

// Milestone - одна дата дедлайна и тип уведомления, который она порождает.
type Milestone struct {
	Type NotificationType
	Date time.Time
}

// Milestones возвращает только заданные даты. Начало приема заявок уведомлений не порождает.
func (d *ExamDeadline) Milestones() []Milestone {
	var out []Milestone
	add := func(t NotificationType, date *time.Time) {
		if date != nil {
			out = append(out, Milestone{Type: t, Date: *date})
		}
	}

	add(NotificationTypeApplicationDeadline, d.ApplicationEndDate)
	add(NotificationTypeExamDate, d.ExamDate)
	add(NotificationTypeAdmitCard, d.AdmitCardDate)
	add(NotificationTypeResultDate, d.ResultDate)

	return out
}
