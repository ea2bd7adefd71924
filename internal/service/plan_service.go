package service

import (
	"context"
	"errors"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanAccessDenied  = errors.New("access denied to this plan")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidOutline    = errors.New("invalid plan outline")
	ErrSessionsWrongKind = errors.New("sessions only apply to scheduled-session plans")
)

// CreatePlanInput carries the user-supplied fields of a new plan.
type CreatePlanInput struct {
	Name         string
	ActivityIDs  []primitive.ObjectID
	OutlineKind  domain.OutlineKind
	WeeklyTarget int
	FinishDate   *time.Time
	IsCoached    bool
}

// UpdatePlanInput carries the user-editable fields of an existing plan.
// Nil pointers leave the corresponding field untouched.
type UpdatePlanInput struct {
	Name         *string
	ActivityIDs  []primitive.ObjectID
	WeeklyTarget *int
	FinishDate   *time.Time
	IsCoached    *bool
}

// SessionInput carries the fields of a planned session.
type SessionInput struct {
	ActivityID       primitive.ObjectID
	TargetDate       time.Time
	TargetQuantity   float64
	IsCoachSuggested bool
}

type PlanService interface {
	CreatePlan(ctx context.Context, userID primitive.ObjectID, input CreatePlanInput) (*domain.Plan, error)
	GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error)
	GetMyPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
	UpdatePlan(ctx context.Context, userID, planID primitive.ObjectID, input UpdatePlanInput) (*domain.Plan, error)
	DeletePlan(ctx context.Context, userID, planID primitive.ObjectID) error

	// Session management for scheduled-outline plans
	AddSession(ctx context.Context, userID, planID primitive.ObjectID, input SessionInput) (*domain.Session, error)
	CommitSession(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.Session, error)
	GetPlanSessions(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Session, error)
}

// planService implements the PlanService interface.
type planService struct {
	planRepo     repository.PlanRepository
	activityRepo repository.ActivityRepository
	sessionRepo  repository.SessionRepository
	cache        *progress.Cache
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	activityRepo repository.ActivityRepository,
	sessionRepo repository.SessionRepository,
	cache *progress.Cache,
) PlanService {
	return &planService{
		planRepo:     planRepo,
		activityRepo: activityRepo,
		sessionRepo:  sessionRepo,
		cache:        cache,
	}
}

// CreatePlan creates a new plan after verifying the user owns every
// referenced activity.
func (s *planService) CreatePlan(ctx context.Context, userID primitive.ObjectID, input CreatePlanInput) (*domain.Plan, error) {
	if userID == primitive.NilObjectID || input.Name == "" {
		return nil, errors.New("user ID and plan name are required")
	}
	if len(input.ActivityIDs) == 0 {
		return nil, errors.New("a plan requires at least one activity")
	}
	switch input.OutlineKind {
	case domain.OutlineTimesPerWeek:
		if input.WeeklyTarget < 1 {
			return nil, ErrInvalidOutline
		}
	case domain.OutlineScheduledSessions:
		// Weekly obligations come from sessions, not a numeric target.
		input.WeeklyTarget = 0
	default:
		return nil, ErrInvalidOutline
	}

	if err := s.verifyActivityOwnership(ctx, userID, input.ActivityIDs); err != nil {
		return nil, err
	}

	plan := &domain.Plan{
		UserID:       userID,
		Name:         input.Name,
		ActivityIDs:  input.ActivityIDs,
		OutlineKind:  input.OutlineKind,
		WeeklyTarget: input.WeeklyTarget,
		FinishDate:   input.FinishDate,
		IsCoached:    input.IsCoached,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID
	return plan, nil
}

// GetPlan fetches a single plan, enforcing ownership.
func (s *planService) GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error) {
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

// GetMyPlans lists the user's plans.
func (s *planService) GetMyPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	return s.planRepo.GetByUserID(ctx, userID)
}

// UpdatePlan applies a partial edit and invalidates the plan's cached
// progress before returning, so the next read recomputes.
func (s *planService) UpdatePlan(ctx context.Context, userID, planID primitive.ObjectID, input UpdatePlanInput) (*domain.Plan, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	// Invalidation must cover both the old and the new activity set.
	affected := append([]primitive.ObjectID(nil), plan.ActivityIDs...)

	if input.Name != nil {
		plan.Name = *input.Name
	}
	if input.ActivityIDs != nil {
		if len(input.ActivityIDs) == 0 {
			return nil, errors.New("a plan requires at least one activity")
		}
		if err := s.verifyActivityOwnership(ctx, userID, input.ActivityIDs); err != nil {
			return nil, err
		}
		plan.ActivityIDs = input.ActivityIDs
		affected = append(affected, input.ActivityIDs...)
	}
	if input.WeeklyTarget != nil {
		if plan.OutlineKind != domain.OutlineTimesPerWeek {
			return nil, ErrInvalidOutline
		}
		if *input.WeeklyTarget < 1 {
			return nil, ErrInvalidOutline
		}
		plan.WeeklyTarget = *input.WeeklyTarget
	}
	if input.FinishDate != nil {
		plan.FinishDate = input.FinishDate
	}
	if input.IsCoached != nil {
		plan.IsCoached = *input.IsCoached
	}

	if err := s.planRepo.Update(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	s.cache.Invalidate(userID, affected)
	return plan, nil
}

// DeletePlan soft-deletes a plan and drops its cached progress.
func (s *planService) DeletePlan(ctx context.Context, userID, planID primitive.ObjectID) error {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if err := s.planRepo.Delete(ctx, planID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	s.cache.Invalidate(userID, plan.ActivityIDs)
	return nil
}

// AddSession plans a session inside a scheduled-outline plan. The session may
// be coach-suggested, in which case it stays provisional until committed.
func (s *planService) AddSession(ctx context.Context, userID, planID primitive.ObjectID, input SessionInput) (*domain.Session, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.OutlineKind != domain.OutlineScheduledSessions {
		return nil, ErrSessionsWrongKind
	}
	if !plan.ContainsActivity(input.ActivityID) {
		return nil, ErrActivityNotFound
	}

	session := &domain.Session{
		PlanID:           planID,
		ActivityID:       input.ActivityID,
		TargetDate:       progress.DayKey(input.TargetDate),
		TargetQuantity:   input.TargetQuantity,
		IsCoachSuggested: input.IsCoachSuggested,
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = sessionID

	s.cache.Invalidate(userID, plan.ActivityIDs)
	return session, nil
}

// CommitSession turns a coach-suggested session into a user-committed one, at
// which point it starts counting toward weekly completion.
func (s *planService) CommitSession(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	plan, err := s.GetPlan(ctx, userID, session.PlanID)
	if err != nil {
		return nil, err
	}
	if !session.IsCoachSuggested {
		return session, nil
	}

	session.IsCoachSuggested = false
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	s.cache.Invalidate(userID, plan.ActivityIDs)
	return session, nil
}

// GetPlanSessions lists a plan's sessions, enforcing ownership.
func (s *planService) GetPlanSessions(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Session, error) {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByPlanID(ctx, planID)
}

// verifyActivityOwnership checks that every activity exists and belongs to
// the user.
func (s *planService) verifyActivityOwnership(ctx context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID) error {
	for _, id := range activityIDs {
		activity, err := s.activityRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrActivityNotFound
			}
			return err
		}
		if activity.UserID != userID {
			return ErrActivityAccessDenied
		}
	}
	return nil
}
