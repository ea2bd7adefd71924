package progress

import (
	"context"
	"sync"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cache memoizes the full progress picture per plan. One entry per plan, no
// TTL: staleness is controlled entirely by explicit invalidation, because
// activity logging and plan edits are the only things that can change the
// answer. Entries are rebuildable from source data at any time.
//
// Concurrency: the outer mutex guards the map, a per-plan mutex serializes
// get/compute/invalidate on the same plan. An invalidation issued after a
// write therefore cannot be overtaken by a stale get that started before the
// write, because the in-flight computation holds the plan's lock until its
// result is stored.
type Cache struct {
	engine      *Engine
	entryRepo   repository.EntryRepository
	sessionRepo repository.SessionRepository

	mu    sync.Mutex
	items map[primitive.ObjectID]*cacheItem

	now func() time.Time
}

type cacheItem struct {
	mu          sync.Mutex
	valid       bool
	progress    *domain.PlanProgress
	userID      primitive.ObjectID
	activityIDs []primitive.ObjectID
}

// NewCache creates the process-wide progress cache. It is constructed once at
// startup and injected into the services that need it.
func NewCache(engine *Engine, entryRepo repository.EntryRepository, sessionRepo repository.SessionRepository) *Cache {
	return &Cache{
		engine:      engine,
		entryRepo:   entryRepo,
		sessionRepo: sessionRepo,
		items:       make(map[primitive.ObjectID]*cacheItem),
		now:         time.Now,
	}
}

// item returns the cache slot for a plan, creating it on first use.
func (c *Cache) item(planID primitive.ObjectID) *cacheItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[planID]
	if !ok {
		it = &cacheItem{}
		c.items[planID] = it
	}
	return it
}

// Get returns the cached progress for a plan if present and not invalidated;
// otherwise it computes, stores and returns a fresh result. Get never mutates
// the plan.
func (c *Cache) Get(ctx context.Context, plan *domain.Plan, loc *time.Location) (*domain.PlanProgress, error) {
	it := c.item(plan.ID)
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.valid {
		return it.progress, nil
	}
	return c.computeLocked(ctx, plan, loc, it)
}

// Compute always recomputes and overwrites the cache entry, regardless of
// freshness. Used by explicit force-recompute requests and by the logging
// flow right after new entries were written.
func (c *Cache) Compute(ctx context.Context, plan *domain.Plan, loc *time.Location) (*domain.PlanProgress, error) {
	it := c.item(plan.ID)
	it.mu.Lock()
	defer it.mu.Unlock()
	return c.computeLocked(ctx, plan, loc, it)
}

// GetBatch resolves progress for several plans, preserving request order.
// Each plan uses its cache slot independently; there is no cross-plan
// locking and no atomicity across the batch.
func (c *Cache) GetBatch(ctx context.Context, plans []*domain.Plan, loc *time.Location, force bool) ([]*domain.PlanProgress, error) {
	results := make([]*domain.PlanProgress, 0, len(plans))
	for _, plan := range plans {
		var (
			prog *domain.PlanProgress
			err  error
		)
		if force {
			prog, err = c.Compute(ctx, plan, loc)
		} else {
			prog, err = c.Get(ctx, plan, loc)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, prog)
	}
	return results, nil
}

// Invalidate drops the cache entries of every plan of the user whose activity
// set intersects activityIDs. Called immediately after an activity log or a
// plan edit, before any recompute, so a subsequent Get is guaranteed fresh.
//
// The map mutex is released before any per-item lock is taken: waiting for an
// in-flight computation on one plan must not stall gets on unrelated plans.
// Items created after the snapshot hold no data yet, so skipping them is safe.
func (c *Cache) Invalidate(userID primitive.ObjectID, activityIDs []primitive.ObjectID) {
	c.mu.Lock()
	snapshot := make([]*cacheItem, 0, len(c.items))
	for _, it := range c.items {
		snapshot = append(snapshot, it)
	}
	c.mu.Unlock()

	for _, it := range snapshot {
		it.mu.Lock()
		if it.valid && it.userID == userID && intersects(it.activityIDs, activityIDs) {
			it.valid = false
			it.progress = nil
		}
		it.mu.Unlock()
	}
}

// computeLocked runs the full computation for one plan. The caller holds the
// plan's cache slot lock.
func (c *Cache) computeLocked(ctx context.Context, plan *domain.Plan, loc *time.Location, it *cacheItem) (*domain.PlanProgress, error) {
	if loc == nil {
		loc = time.UTC
	}
	entries, err := c.entryRepo.GetByActivityIDsInRange(ctx, plan.ActivityIDs, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	var sessions []domain.Session
	if plan.OutlineKind == domain.OutlineScheduledSessions {
		sessions, err = c.sessionRepo.GetByPlanID(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
	}

	now := c.now().In(loc)

	achievement, habit, lifestyle, err := c.engine.Achievements(plan, entries, sessions, now)
	if err != nil {
		return nil, err
	}
	week, err := WeekProgressFor(plan, entries, sessions, now)
	if err != nil {
		return nil, err
	}
	state, err := ClassifyCurrentWeek(plan, entries, sessions, now)
	if err != nil {
		return nil, err
	}

	prog := &domain.PlanProgress{
		PlanID:      plan.ID,
		Achievement: achievement,
		Habit:       habit,
		Lifestyle:   lifestyle,
		State:       state,
		Week:        week,
		ComputedAt:  c.now().UTC(),
	}
	it.valid = true
	it.progress = prog
	it.userID = plan.UserID
	it.activityIDs = append([]primitive.ObjectID(nil), plan.ActivityIDs...)
	return prog, nil
}

func intersects(a, b []primitive.ObjectID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
