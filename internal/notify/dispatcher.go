package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dispatcher hands a coaching message off for delivery to a user. The real
// fan-out (push, email, in-app) lives outside this engine; delivery is
// fire-and-forget from the caller's perspective.
type Dispatcher interface {
	Deliver(ctx context.Context, userID primitive.ObjectID, message string) error
}

// LogDispatcher writes notifications to the process log, stamping each with a
// correlation ID so a delivery can be traced across services. It stands in
// for the real dispatcher in development and tests.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Deliver(_ context.Context, userID primitive.ObjectID, message string) error {
	notificationID := uuid.NewString()
	log.Printf("INFO: notification %s for user %s: %s", notificationID, userID.Hex(), message)
	return nil
}
