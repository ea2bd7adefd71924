package service

import (
	"context"
	"errors"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrActivityNotFound     = errors.New("activity not found")
	ErrActivityAccessDenied = errors.New("access denied to this activity")
)

type ActivityService interface {
	CreateActivity(ctx context.Context, userID primitive.ObjectID, name, unit string) (*domain.Activity, error)
	GetMyActivities(ctx context.Context, userID primitive.ObjectID) ([]domain.Activity, error)
	DeleteActivity(ctx context.Context, userID, activityID primitive.ObjectID) error
}

// activityService implements the ActivityService interface.
type activityService struct {
	activityRepo repository.ActivityRepository
	cache        *progress.Cache
}

// NewActivityService creates a new instance of activityService.
func NewActivityService(activityRepo repository.ActivityRepository, cache *progress.Cache) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		cache:        cache,
	}
}

// CreateActivity creates a new loggable activity type for the user.
func (s *activityService) CreateActivity(ctx context.Context, userID primitive.ObjectID, name, unit string) (*domain.Activity, error) {
	if userID == primitive.NilObjectID || name == "" {
		return nil, errors.New("user ID and activity name are required")
	}

	activity := &domain.Activity{
		UserID: userID,
		Name:   name,
		Unit:   unit,
	}
	activityID, err := s.activityRepo.Create(ctx, activity)
	if err != nil {
		return nil, err
	}
	activity.ID = activityID
	return activity, nil
}

// GetMyActivities lists the user's activities.
func (s *activityService) GetMyActivities(ctx context.Context, userID primitive.ObjectID) ([]domain.Activity, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	return s.activityRepo.GetByUserID(ctx, userID)
}

// DeleteActivity soft-deletes an activity. Cached progress of plans that
// referenced it is invalidated explicitly; historical snapshots must not
// survive the removal.
func (s *activityService) DeleteActivity(ctx context.Context, userID, activityID primitive.ObjectID) error {
	err := s.activityRepo.Delete(ctx, activityID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrActivityNotFound
		}
		return err
	}
	s.cache.Invalidate(userID, []primitive.ObjectID{activityID})
	return nil
}
