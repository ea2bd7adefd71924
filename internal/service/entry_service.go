package service

import (
	"context"
	"errors"
	"log"
	"time"

	"habitloop/habit-app/internal/coaching"
	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrEntryNotFound = errors.New("entry not found")
)

type EntryService interface {
	// LogEntry is the write path of the progress engine: it persists the
	// entry, invalidates and recomputes affected plan progress, runs the
	// coaching reaction (note refresh and possible auto-adjustment) and
	// schedules the delayed follow-up for coached plans.
	LogEntry(ctx context.Context, userID, activityID primitive.ObjectID, date time.Time, quantity float64, note string) (*domain.ActivityEntry, error)
	GetMyEntries(ctx context.Context, userID primitive.ObjectID) ([]domain.ActivityEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID primitive.ObjectID) error
}

// entryService implements the EntryService interface.
type entryService struct {
	entryRepo    repository.EntryRepository
	activityRepo repository.ActivityRepository
	planRepo     repository.PlanRepository
	userRepo     repository.UserRepository
	cache        *progress.Cache
	adjuster     *coaching.Adjuster
	scheduler    *coaching.Scheduler
}

// NewEntryService creates a new instance of entryService.
func NewEntryService(
	entryRepo repository.EntryRepository,
	activityRepo repository.ActivityRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	cache *progress.Cache,
	adjuster *coaching.Adjuster,
	scheduler *coaching.Scheduler,
) EntryService {
	return &entryService{
		entryRepo:    entryRepo,
		activityRepo: activityRepo,
		planRepo:     planRepo,
		userRepo:     userRepo,
		cache:        cache,
		adjuster:     adjuster,
		scheduler:    scheduler,
	}
}

// LogEntry persists a new activity entry and drives the write-triggered
// recompute. Coaching trouble (note generation, delivery) never fails the
// logging request; only a missing/unauthorized activity or a storage error
// does.
func (s *entryService) LogEntry(ctx context.Context, userID, activityID primitive.ObjectID, date time.Time, quantity float64, note string) (*domain.ActivityEntry, error) {
	if userID == primitive.NilObjectID || activityID == primitive.NilObjectID {
		return nil, errors.New("user ID and activity ID are required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	// 1. Verify the activity exists and belongs to this user.
	activity, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	if activity.UserID != userID {
		return nil, ErrActivityAccessDenied
	}

	// 2. Persist the entry with a normalized day key.
	entry := &domain.ActivityEntry{
		UserID:     userID,
		ActivityID: activityID,
		Date:       progress.DayKey(date),
		Quantity:   quantity,
		Note:       note,
	}
	entryID, err := s.entryRepo.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID

	// 3. Invalidate before recomputing, so no concurrent read can pin a
	// pre-write snapshot.
	s.cache.Invalidate(userID, []primitive.ObjectID{activityID})

	s.recomputeAffectedPlans(ctx, userID, activityID, entry)

	return entry, nil
}

// recomputeAffectedPlans runs the write-path recompute for every plan of the
// user containing the logged activity. Per-plan coaching trouble is logged
// and skipped; an invariant violation in the computation itself is loud.
func (s *entryService) recomputeAffectedPlans(ctx context.Context, userID, activityID primitive.ObjectID, entry *domain.ActivityEntry) {
	plans, err := s.planRepo.GetByUserAndActivityIDs(ctx, userID, []primitive.ObjectID{activityID})
	if err != nil {
		log.Printf("ERROR: failed to list plans for recompute (user %s): %v", userID.Hex(), err)
		return
	}
	if len(plans) == 0 {
		return
	}

	loc := s.userLocation(ctx, userID)

	for i := range plans {
		plan := &plans[i]

		prog, err := s.cache.Compute(ctx, plan, loc)
		if err != nil {
			// Includes invariant violations like a weekly target below 1;
			// those indicate corrupted plan state and must stay visible.
			log.Printf("ERROR: progress recompute failed for plan %s: %v", plan.ID.Hex(), err)
			continue
		}

		if !plan.IsCoached {
			continue
		}

		adjusted, err := s.adjuster.React(ctx, plan, prog.State, loc)
		if err != nil {
			log.Printf("WARN: coaching reaction failed for plan %s: %v", plan.ID.Hex(), err)
		}
		if adjusted {
			// The target changed, so the cached progress is stale again.
			s.cache.Invalidate(userID, plan.ActivityIDs)
			if _, err := s.cache.Compute(ctx, plan, loc); err != nil {
				log.Printf("ERROR: post-adjustment recompute failed for plan %s: %v", plan.ID.Hex(), err)
			}
		}

		s.scheduler.ScheduleFollowUp(plan.ID, *entry)
	}
}

// userLocation resolves the user's timezone for current-week classification,
// falling back to UTC when the user record cannot be read.
func (s *entryService) userLocation(ctx context.Context, userID primitive.ObjectID) *time.Location {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to resolve timezone for user %s: %v", userID.Hex(), err)
		return time.UTC
	}
	return user.Location()
}

// GetMyEntries lists the user's entries, oldest first.
func (s *entryService) GetMyEntries(ctx context.Context, userID primitive.ObjectID) ([]domain.ActivityEntry, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	return s.entryRepo.GetByUserID(ctx, userID)
}

// DeleteEntry soft-deletes an entry and invalidates affected plan progress.
func (s *entryService) DeleteEntry(ctx context.Context, userID, entryID primitive.ObjectID) error {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	if entry.UserID != userID {
		return ErrEntryNotFound
	}
	if err := s.entryRepo.Delete(ctx, entryID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	s.cache.Invalidate(userID, []primitive.ObjectID{entry.ActivityID})
	return nil
}
