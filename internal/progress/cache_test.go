package progress

import (
	"context"
	"testing"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEntryRepo serves a fixed entry set and counts range queries so tests can
// observe cache hits versus recomputes.
type fakeEntryRepo struct {
	entries    []domain.ActivityEntry
	rangeCalls int
}

func (f *fakeEntryRepo) Create(_ context.Context, _ *domain.ActivityEntry) (primitive.ObjectID, error) {
	return primitive.NewObjectID(), nil
}

func (f *fakeEntryRepo) GetByID(_ context.Context, _ primitive.ObjectID) (*domain.ActivityEntry, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeEntryRepo) GetByActivityIDsInRange(_ context.Context, activityIDs []primitive.ObjectID, _, _ time.Time) ([]domain.ActivityEntry, error) {
	f.rangeCalls++
	var out []domain.ActivityEntry
	for _, e := range f.entries {
		for _, id := range activityIDs {
			if e.ActivityID == id {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) GetByUserID(_ context.Context, _ primitive.ObjectID) ([]domain.ActivityEntry, error) {
	return f.entries, nil
}

func (f *fakeEntryRepo) Delete(_ context.Context, _, _ primitive.ObjectID) error {
	return nil
}

type fakeSessionRepo struct {
	sessions []domain.Session
}

func (f *fakeSessionRepo) Create(_ context.Context, _ *domain.Session) (primitive.ObjectID, error) {
	return primitive.NewObjectID(), nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, _ primitive.ObjectID) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeSessionRepo) GetByPlanInRange(_ context.Context, planID primitive.ObjectID, from, to time.Time) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range f.sessions {
		if s.PlanID == planID && inWindow(DayKey(s.TargetDate), from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range f.sessions {
		if s.PlanID == planID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Update(_ context.Context, _ *domain.Session) error {
	return nil
}

// gatedEntryRepo blocks range queries touching one activity so tests can hold
// a computation in flight.
type gatedEntryRepo struct {
	*fakeEntryRepo
	gateID  primitive.ObjectID
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEntryRepo) GetByActivityIDsInRange(ctx context.Context, activityIDs []primitive.ObjectID, from, to time.Time) ([]domain.ActivityEntry, error) {
	for _, id := range activityIDs {
		if id == g.gateID {
			g.entered <- struct{}{}
			<-g.release
			break
		}
	}
	return g.fakeEntryRepo.GetByActivityIDsInRange(ctx, activityIDs, from, to)
}

func newTestCache(entryRepo *fakeEntryRepo) *Cache {
	cache := NewCache(NewEngine(DefaultThresholds), entryRepo, &fakeSessionRepo{})
	// Thursday noon, fixed so classification is stable.
	cache.now = func() time.Time { return time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC) }
	return cache
}

func TestCache_GetCachesUntilInvalidated(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(3, activityID)
	repo := &fakeEntryRepo{entries: []domain.ActivityEntry{
		entryOn(activityID, date(2025, 6, 2)),
	}}
	cache := newTestCache(repo)
	ctx := context.Background()

	first, err := cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)
	second, err := cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.rangeCalls, "second get should hit the cache")
	assert.Same(t, first, second)

	cache.Invalidate(plan.UserID, []primitive.ObjectID{activityID})
	_, err = cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rangeCalls, "get after invalidation must recompute")
}

func TestCache_ComputeAlwaysRecomputes(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(3, activityID)
	repo := &fakeEntryRepo{}
	cache := newTestCache(repo)
	ctx := context.Background()

	_, err := cache.Compute(ctx, plan, time.UTC)
	require.NoError(t, err)
	_, err = cache.Compute(ctx, plan, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rangeCalls)

	// A get right after a compute is served from cache.
	_, err = cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rangeCalls)
}

func TestCache_InvalidateIsSelective(t *testing.T) {
	userID := primitive.NewObjectID()
	activityA := primitive.NewObjectID()
	activityB := primitive.NewObjectID()

	planA := timesPerWeekPlan(3, activityA)
	planA.UserID = userID
	planB := timesPerWeekPlan(3, activityB)
	planB.UserID = userID

	repo := &fakeEntryRepo{}
	cache := newTestCache(repo)
	ctx := context.Background()

	_, err := cache.Get(ctx, planA, time.UTC)
	require.NoError(t, err)
	_, err = cache.Get(ctx, planB, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2, repo.rangeCalls)

	// Only plan A's activity is invalidated.
	cache.Invalidate(userID, []primitive.ObjectID{activityA})

	_, err = cache.Get(ctx, planB, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rangeCalls, "plan B must stay cached")

	_, err = cache.Get(ctx, planA, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.rangeCalls, "plan A must recompute")
}

func TestCache_InvalidateScopedToUser(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(3, activityID)
	repo := &fakeEntryRepo{}
	cache := newTestCache(repo)
	ctx := context.Background()

	_, err := cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)

	// Same activity ID but a different user: no effect.
	cache.Invalidate(primitive.NewObjectID(), []primitive.ObjectID{activityID})

	_, err = cache.Get(ctx, plan, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.rangeCalls)
}

func TestCache_GetBatchPreservesOrder(t *testing.T) {
	userID := primitive.NewObjectID()
	plans := make([]*domain.Plan, 5)
	for i := range plans {
		plans[i] = timesPerWeekPlan(3, primitive.NewObjectID())
		plans[i].UserID = userID
	}

	repo := &fakeEntryRepo{}
	cache := newTestCache(repo)

	results, err := cache.GetBatch(context.Background(), plans, time.UTC, false)
	require.NoError(t, err)
	require.Len(t, results, len(plans))
	for i, prog := range results {
		assert.Equal(t, plans[i].ID, prog.PlanID)
	}
}

func TestCache_InvalidateDoesNotBlockOtherPlans(t *testing.T) {
	userID := primitive.NewObjectID()
	activityA := primitive.NewObjectID()
	activityB := primitive.NewObjectID()
	planA := timesPerWeekPlan(3, activityA)
	planA.UserID = userID
	planB := timesPerWeekPlan(3, activityB)
	planB.UserID = userID

	repo := &gatedEntryRepo{
		fakeEntryRepo: &fakeEntryRepo{},
		gateID:        activityA,
		entered:       make(chan struct{}, 4),
		release:       make(chan struct{}),
	}
	cache := NewCache(NewEngine(DefaultThresholds), repo, &fakeSessionRepo{})
	cache.now = func() time.Time { return time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	// Hold plan A's computation in flight.
	computeDone := make(chan struct{})
	go func() {
		defer close(computeDone)
		_, err := cache.Get(ctx, planA, time.UTC)
		assert.NoError(t, err)
	}()
	<-repo.entered

	// This invalidation has to wait for plan A's slot.
	invalidateDone := make(chan struct{})
	go func() {
		defer close(invalidateDone)
		cache.Invalidate(userID, []primitive.ObjectID{activityA})
	}()
	time.Sleep(50 * time.Millisecond)

	// An unrelated plan must still be readable while both are pending.
	getDone := make(chan struct{})
	go func() {
		defer close(getDone)
		_, err := cache.Get(ctx, planB, time.UTC)
		assert.NoError(t, err)
	}()
	select {
	case <-getDone:
	case <-time.After(2 * time.Second):
		t.Fatal("get on an unrelated plan stalled behind the invalidation")
	}

	close(repo.release)
	<-computeDone
	<-invalidateDone

	// The pending invalidation landed once plan A's computation finished.
	before := repo.rangeCalls
	_, err := cache.Get(ctx, planA, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, before+1, repo.rangeCalls)
}

func TestCache_ComputeFillsFullPicture(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(2, activityID)
	repo := &fakeEntryRepo{entries: []domain.ActivityEntry{
		entryOn(activityID, date(2025, 6, 1)),
		entryOn(activityID, date(2025, 6, 3)),
	}}
	cache := newTestCache(repo)

	prog, err := cache.Compute(context.Background(), plan, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, plan.ID, prog.PlanID)
	assert.Equal(t, domain.StateCompleted, prog.State)
	assert.True(t, prog.Week.IsCompleted)
	assert.Equal(t, 2, prog.Week.CompletedCount)
	assert.Equal(t, domain.TierHabit, prog.Habit.Tier)
	assert.Equal(t, domain.TierLifestyle, prog.Lifestyle.Tier)
	assert.False(t, prog.ComputedAt.IsZero())
}

func TestCache_SurfacesInvalidTarget(t *testing.T) {
	plan := timesPerWeekPlan(0, primitive.NewObjectID())
	cache := newTestCache(&fakeEntryRepo{})

	_, err := cache.Compute(context.Background(), plan, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidWeeklyTarget)
}
