package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User - только то, что нужно подсистеме уведомлений. Профиль и авторизация живут в другом сервисе.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`

	// Академический поток, по нему фильтруются уведомления
	Stream string `bson:"stream" json:"stream"`

	Role UserRole `bson:"role" json:"role"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
