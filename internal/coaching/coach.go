package coaching

import (
	"context"
	"fmt"

	"habitloop/habit-app/internal/domain"
)

// MessageGenerator turns plan state into short coaching prose. The production
// implementation calls the external generative-text service; from this
// engine's point of view it is a black box with a fixed contract, and every
// failure is soft (logged, skipped, never surfaced to the user).
type MessageGenerator interface {
	// GenerateNote produces the coach-notes text for a plan in the given
	// current-week state. oldTarget and newTarget differ only when an
	// auto-adjustment just lowered the weekly target.
	GenerateNote(ctx context.Context, plan *domain.Plan, state domain.CurrentWeekState, oldTarget, newTarget int) (string, error)
	// GenerateFollowUp produces a short congratulatory/supportive message
	// tied to a just-logged entry.
	GenerateFollowUp(ctx context.Context, plan *domain.Plan, entry *domain.ActivityEntry) (string, error)
}

// TemplateGenerator is a deterministic, local MessageGenerator used when no
// external text service is configured.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) GenerateNote(_ context.Context, plan *domain.Plan, state domain.CurrentWeekState, oldTarget, newTarget int) (string, error) {
	switch state {
	case domain.StateCompleted:
		return fmt.Sprintf("Week complete for %q. Great consistency, keep it rolling.", plan.Name), nil
	case domain.StateAtRisk:
		return fmt.Sprintf("%q needs every remaining day this week. You can still make it.", plan.Name), nil
	case domain.StateFailed:
		if newTarget < oldTarget {
			return fmt.Sprintf("This week got away from you, so %q now aims for %d days instead of %d. A smaller target you hit beats a bigger one you miss.", plan.Name, newTarget, oldTarget), nil
		}
		return fmt.Sprintf("This week got away from you on %q. Reset and start fresh on Sunday.", plan.Name), nil
	default:
		return fmt.Sprintf("%q is on track this week. Nice pace.", plan.Name), nil
	}
}

func (g *TemplateGenerator) GenerateFollowUp(_ context.Context, plan *domain.Plan, entry *domain.ActivityEntry) (string, error) {
	return fmt.Sprintf("Nice work logging %s toward %q today!", entry.Date.Format("Jan 2"), plan.Name), nil
}
