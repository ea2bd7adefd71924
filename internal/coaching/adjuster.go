package coaching

import (
	"context"
	"log"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository"
)

// Adjuster applies the write-path coaching reaction to a freshly recomputed
// current-week state: it always refreshes the plan's coach note, and on the
// first FAILED of a week it lowers the weekly target.
//
// The read path (progress fetches) never goes through the Adjuster; only the
// logging flow does. That separation is the key invariant of this component:
// reads never mutate, the write-triggered path may.
type Adjuster struct {
	planRepo  repository.PlanRepository
	generator MessageGenerator
	decrement int

	now func() time.Time
}

// NewAdjuster creates the auto-adjustment component. decrement is how much a
// FAILED week lowers the weekly target; values below 1 fall back to 1.
func NewAdjuster(planRepo repository.PlanRepository, generator MessageGenerator, decrement int) *Adjuster {
	if decrement < 1 {
		decrement = 1
	}
	return &Adjuster{
		planRepo:  planRepo,
		generator: generator,
		decrement: decrement,
		now:       time.Now,
	}
}

// React persists the coaching reaction to a recomputed state. It returns
// whether the weekly target was adjusted, so the caller knows to refresh any
// cached progress. Generator failures are soft: the note is skipped, the
// adjustment (if due) still happens, and the triggering request never fails.
//
// loc is the plan owner's timezone. The once-per-week marker must name the
// same week the FAILED classification was computed in, so both derive it from
// the owner's local time. A nil loc falls back to UTC.
func (a *Adjuster) React(ctx context.Context, plan *domain.Plan, state domain.CurrentWeekState, loc *time.Location) (bool, error) {
	if state != domain.StateFailed || plan.OutlineKind != domain.OutlineTimesPerWeek {
		note, err := a.generator.GenerateNote(ctx, plan, state, plan.WeeklyTarget, plan.WeeklyTarget)
		if err != nil {
			log.Printf("WARN: coach note generation failed for plan %s: %v", plan.ID.Hex(), err)
			return false, nil
		}
		if err := a.planRepo.UpdateCoachNotes(ctx, plan.ID, note); err != nil {
			return false, err
		}
		plan.CoachNotes = note
		return false, nil
	}

	if loc == nil {
		loc = time.UTC
	}
	weekStart := progress.WeekStart(a.now().In(loc))
	if plan.AdjustedWeekStart != nil && plan.AdjustedWeekStart.Equal(weekStart) {
		// Already adjusted for this week; re-entering FAILED must not
		// decrement again. The note was written on the first transition.
		return false, nil
	}

	oldTarget := plan.WeeklyTarget
	newTarget := oldTarget - a.decrement
	if newTarget < 1 {
		// Never adjust to zero.
		newTarget = 1
	}

	note := plan.CoachNotes
	generated, err := a.generator.GenerateNote(ctx, plan, state, oldTarget, newTarget)
	if err != nil {
		log.Printf("WARN: coach note generation failed for plan %s: %v", plan.ID.Hex(), err)
	} else {
		note = generated
	}

	if err := a.planRepo.UpdateTargetAndNotes(ctx, plan.ID, newTarget, note, &weekStart); err != nil {
		return false, err
	}
	plan.WeeklyTarget = newTarget
	plan.CoachNotes = note
	plan.AdjustedWeekStart = &weekStart
	return newTarget != oldTarget, nil
}
