package coaching

import (
	"context"
	"sync"
	"testing"
	"time"

	"habitloop/habit-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingDispatcher captures delivered messages.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []string
	userIDs  []primitive.ObjectID
}

func (d *recordingDispatcher) Deliver(_ context.Context, userID primitive.ObjectID, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	d.userIDs = append(d.userIDs, userID)
	return nil
}

func (d *recordingDispatcher) delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

func testEntry(activityID primitive.ObjectID) domain.ActivityEntry {
	return domain.ActivityEntry{
		ID:         primitive.NewObjectID(),
		ActivityID: activityID,
		Date:       time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestScheduler_DeliversFollowUp(t *testing.T) {
	plan := coachedPlan(5)
	repo := newFakePlanRepo(plan)
	dispatcher := &recordingDispatcher{}
	scheduler := NewScheduler(repo, NewTemplateGenerator(), dispatcher, 0, 0)

	scheduler.ScheduleFollowUp(plan.ID, testEntry(plan.ActivityIDs[0]))
	scheduler.wg.Wait()

	messages := dispatcher.delivered()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], plan.Name)
	assert.Equal(t, plan.UserID, dispatcher.userIDs[0])
}

func TestScheduler_SkipsDeletedPlan(t *testing.T) {
	repo := newFakePlanRepo() // empty: the plan is gone by wake-up time
	dispatcher := &recordingDispatcher{}
	scheduler := NewScheduler(repo, NewTemplateGenerator(), dispatcher, 0, 0)

	scheduler.ScheduleFollowUp(primitive.NewObjectID(), testEntry(primitive.NewObjectID()))
	scheduler.wg.Wait()

	assert.Empty(t, dispatcher.delivered())
}

func TestScheduler_SkipsUncoachedPlan(t *testing.T) {
	plan := coachedPlan(5)
	plan.IsCoached = false
	repo := newFakePlanRepo(plan)
	dispatcher := &recordingDispatcher{}
	scheduler := NewScheduler(repo, NewTemplateGenerator(), dispatcher, 0, 0)

	scheduler.ScheduleFollowUp(plan.ID, testEntry(plan.ActivityIDs[0]))
	scheduler.wg.Wait()

	assert.Empty(t, dispatcher.delivered())
}

func TestScheduler_GeneratorFailureIsSwallowed(t *testing.T) {
	plan := coachedPlan(5)
	repo := newFakePlanRepo(plan)
	dispatcher := &recordingDispatcher{}
	scheduler := NewScheduler(repo, failingGenerator{}, dispatcher, 0, 0)

	scheduler.ScheduleFollowUp(plan.ID, testEntry(plan.ActivityIDs[0]))
	scheduler.wg.Wait()

	assert.Empty(t, dispatcher.delivered())
}

func TestScheduler_ShutdownCancelsPendingFollowUps(t *testing.T) {
	plan := coachedPlan(5)
	repo := newFakePlanRepo(plan)
	dispatcher := &recordingDispatcher{}
	// A delay far beyond the test's lifetime: the task must be cancelled, not run.
	scheduler := NewScheduler(repo, NewTemplateGenerator(), dispatcher, time.Hour, time.Hour)

	scheduler.ScheduleFollowUp(plan.ID, testEntry(plan.ActivityIDs[0]))

	done := make(chan struct{})
	go func() {
		scheduler.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return in time")
	}
	assert.Empty(t, dispatcher.delivered())
}

func TestScheduler_DelayBoundsAreSanitized(t *testing.T) {
	scheduler := NewScheduler(newFakePlanRepo(), NewTemplateGenerator(), &recordingDispatcher{}, -time.Second, -2*time.Second)
	assert.Equal(t, time.Duration(0), scheduler.minDelay)
	assert.Equal(t, time.Duration(0), scheduler.maxDelay)
}
