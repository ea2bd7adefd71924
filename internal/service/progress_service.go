package service

import (
	"context"
	"errors"
	"log"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProgressService interface {
	// GetPlanProgress is the read path: cached unless force is set, and it
	// never mutates the plan or its coach notes.
	GetPlanProgress(ctx context.Context, userID, planID primitive.ObjectID, force bool) (*domain.PlanProgress, error)
	// GetBatchProgress resolves several plans in one call, returning results
	// in request order. Plans are cached independently; the batch is not
	// atomic as a group.
	GetBatchProgress(ctx context.Context, userID primitive.ObjectID, planIDs []primitive.ObjectID, force bool) ([]*domain.PlanProgress, error)
	// InvalidateProgress drops the cached progress of every plan of the user
	// whose activity set intersects the given IDs.
	InvalidateProgress(ctx context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID)
}

// progressService implements the ProgressService interface.
type progressService struct {
	planRepo repository.PlanRepository
	userRepo repository.UserRepository
	cache    *progress.Cache
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(planRepo repository.PlanRepository, userRepo repository.UserRepository, cache *progress.Cache) ProgressService {
	return &progressService{
		planRepo: planRepo,
		userRepo: userRepo,
		cache:    cache,
	}
}

// GetPlanProgress fetches the progress picture for one plan.
func (s *progressService) GetPlanProgress(ctx context.Context, userID, planID primitive.ObjectID, force bool) (*domain.PlanProgress, error) {
	plan, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	loc := s.userLocation(ctx, userID)
	if force {
		return s.cache.Compute(ctx, plan, loc)
	}
	return s.cache.Get(ctx, plan, loc)
}

// GetBatchProgress fans out per plan and preserves request ordering.
func (s *progressService) GetBatchProgress(ctx context.Context, userID primitive.ObjectID, planIDs []primitive.ObjectID, force bool) ([]*domain.PlanProgress, error) {
	plans := make([]*domain.Plan, 0, len(planIDs))
	for _, planID := range planIDs {
		plan, err := s.ownedPlan(ctx, userID, planID)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	loc := s.userLocation(ctx, userID)
	return s.cache.GetBatch(ctx, plans, loc, force)
}

// InvalidateProgress exposes the explicit invalidation hook.
func (s *progressService) InvalidateProgress(_ context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID) {
	s.cache.Invalidate(userID, activityIDs)
}

// ownedPlan fetches a plan and enforces ownership.
func (s *progressService) ownedPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

func (s *progressService) userLocation(ctx context.Context, userID primitive.ObjectID) *time.Location {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to resolve timezone for user %s: %v", userID.Hex(), err)
		return time.UTC
	}
	return user.Location()
}
