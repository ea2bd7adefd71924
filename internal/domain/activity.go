package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is a loggable action type owned by a user, e.g. "Running" measured
// in kilometers. Plans reference activities; entries log occurrences of them.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	Unit      string             `bson:"unit,omitempty" json:"unit,omitempty"` // e.g. "km", "minutes", "reps"
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}
