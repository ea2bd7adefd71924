package coaching

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/notify"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const followUpTimeout = 15 * time.Second

// Scheduler runs the one-shot, jittered follow-up task that fires after a
// coached plan receives a new entry. Tasks are fire-and-forget: they are not
// awaited by their trigger, carry no retry, and every failure is swallowed
// and logged. The randomized delay keeps the follow-up from feeling
// mechanical.
//
// Unlike a bare timer callback the scheduler owns its tasks: Shutdown cancels
// pending timers and waits for in-flight tasks, so process shutdown cannot
// silently corrupt one mid-run.
type Scheduler struct {
	planRepo   repository.PlanRepository
	generator  MessageGenerator
	dispatcher notify.Dispatcher

	minDelay time.Duration
	maxDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates the follow-up scheduler. Delays are drawn uniformly
// from [minDelay, maxDelay].
func NewScheduler(planRepo repository.PlanRepository, generator MessageGenerator, dispatcher notify.Dispatcher, minDelay, maxDelay time.Duration) *Scheduler {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		planRepo:   planRepo,
		generator:  generator,
		dispatcher: dispatcher,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ScheduleFollowUp submits a delayed follow-up for the given plan and the
// just-logged entry. Returns immediately; the triggering request has usually
// already responded by the time the task runs.
func (s *Scheduler) ScheduleFollowUp(planID primitive.ObjectID, entry domain.ActivityEntry) {
	delay := s.minDelay
	if jitter := int64(s.maxDelay - s.minDelay); jitter > 0 {
		delay += time.Duration(rand.Int63n(jitter + 1))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
		s.runFollowUp(planID, entry)
	}()
}

// runFollowUp re-reads the plan fresh (not from cache) so it reflects the
// just-logged entry and any concurrent edits, then generates and delivers the
// follow-up message.
func (s *Scheduler) runFollowUp(planID primitive.ObjectID, entry domain.ActivityEntry) {
	ctx, cancel := context.WithTimeout(s.ctx, followUpTimeout)
	defer cancel()

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Plan deleted between logging and wake-up: no-op.
			return
		}
		log.Printf("WARN: follow-up for plan %s: failed to re-read plan: %v", planID.Hex(), err)
		return
	}
	if !plan.IsCoached {
		// Coaching was switched off before the task fired: no-op.
		return
	}

	message, err := s.generator.GenerateFollowUp(ctx, plan, &entry)
	if err != nil {
		log.Printf("WARN: follow-up generation failed for plan %s: %v", planID.Hex(), err)
		return
	}
	if err := s.dispatcher.Deliver(ctx, plan.UserID, message); err != nil {
		log.Printf("WARN: follow-up delivery failed for plan %s: %v", planID.Hex(), err)
	}
}

// Shutdown cancels pending follow-ups and waits for in-flight tasks.
func (s *Scheduler) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
