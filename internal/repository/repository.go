package repository

import (
	"context"
	"time"

	"habitloop/habit-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ActivityRepository defines the interface for interacting with activity data.
// All queries exclude soft-deleted documents.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Activity, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// PlanRepository defines the interface for interacting with plan data.
// All queries exclude soft-deleted documents.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
	// GetByUserAndActivityIDs returns the user's plans whose activity set
	// intersects the given activity IDs.
	GetByUserAndActivityIDs(ctx context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID) ([]domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	// UpdateTargetAndNotes persists the fields mutated by the coaching engine:
	// the weekly target, the coach-notes text and the adjustment marker.
	UpdateTargetAndNotes(ctx context.Context, planID primitive.ObjectID, weeklyTarget int, coachNotes string, adjustedWeekStart *time.Time) error
	// UpdateCoachNotes persists a refreshed coach note without touching the target.
	UpdateCoachNotes(ctx context.Context, planID primitive.ObjectID, coachNotes string) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// SessionRepository defines the interface for interacting with planned sessions
// of scheduled-outline plans.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	// GetByPlanInRange lists a plan's sessions with a target date in [from, to).
	GetByPlanInRange(ctx context.Context, planID primitive.ObjectID, from, to time.Time) ([]domain.Session, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
}

// EntryRepository defines the interface for interacting with activity entries.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.ActivityEntry) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ActivityEntry, error)
	// GetByActivityIDsInRange lists entries for any of the given activities
	// with a date in [from, to). A zero "from"/"to" leaves that bound open.
	GetByActivityIDsInRange(ctx context.Context, activityIDs []primitive.ObjectID, from, to time.Time) ([]domain.ActivityEntry, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ActivityEntry, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}
