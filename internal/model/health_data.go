package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// HealthData is one user's accumulated activity for a single calendar day.
// Date is a YYYY-MM-DD string; repeated ingestion for the same day adds to
// the stored counters.
type HealthData struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    string        `bson:"user_id"`
	Date      string        `bson:"date"`
	Steps     int64         `bson:"steps"`
	Duration  int64         `bson:"duration"`
	Calories  float64       `bson:"calories"`
	Distance  float64       `bson:"distance"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
