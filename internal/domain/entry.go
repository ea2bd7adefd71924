package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityEntry is one logged occurrence of an activity on a given day.
// Date is day-granular, normalized to midnight UTC. Multiple entries may exist
// for the same activity on the same day; progress computations aggregate them
// into distinct active days.
type ActivityEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	ActivityID primitive.ObjectID `bson:"activityId" json:"activityId"`
	Date       time.Time          `bson:"date" json:"date"`
	Quantity   float64            `bson:"quantity" json:"quantity"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt  *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}
