package progress

import (
	"fmt"
	"time"

	"habitloop/habit-app/internal/domain"
)

// ClassifyWeek classifies the in-progress week of a TIMES_PER_WEEK plan from
// today's date (in the plan owner's zone), the weekly target and the distinct
// active days so far. Pure function, recomputed fresh on every call.
//
// Today still counts as an available day, so on a Thursday three days remain
// (Thursday, Friday, Saturday).
func ClassifyWeek(target, completedCount int, today time.Time) (domain.CurrentWeekState, error) {
	if target < 1 {
		return "", fmt.Errorf("target %d: %w", target, ErrInvalidWeeklyTarget)
	}
	daysElapsed := DaysElapsedInWeek(today)
	daysLeft := 7 - daysElapsed + 1
	need := target - completedCount

	switch {
	case completedCount >= target:
		return domain.StateCompleted, nil
	case need > daysLeft:
		// Mathematically impossible to finish this week.
		return domain.StateFailed, nil
	case need == daysLeft:
		// Zero slack: every remaining day is mandatory.
		return domain.StateAtRisk, nil
	default:
		return domain.StateOnTrack, nil
	}
}

// classifySessionWeek derives the same four labels for a SCHEDULED_SESSIONS
// plan from session completion instead of day arithmetic: all sessions
// matched means COMPLETED, an unmatched session already past due means
// FAILED (no partial credit is possible anymore), an unmatched session due
// today means AT_RISK.
func classifySessionWeek(plan *domain.Plan, entries []domain.ActivityEntry, sessions []domain.Session, today time.Time) domain.CurrentWeekState {
	weekStart := WeekStart(today)
	weekEnd := weekStart.AddDate(0, 0, 7)
	todayKey := DayKey(today)

	planned := weekSessions(sessions, weekStart, weekEnd)
	if len(planned) == 0 {
		return domain.StateOnTrack
	}

	unmatched := 0
	overdue := false
	dueToday := false
	for _, s := range planned {
		if sessionMatched(s, plan, entries, weekStart, weekEnd) {
			continue
		}
		unmatched++
		targetKey := DayKey(s.TargetDate)
		if targetKey.Before(todayKey) {
			overdue = true
		} else if targetKey.Equal(todayKey) {
			dueToday = true
		}
	}

	switch {
	case unmatched == 0:
		return domain.StateCompleted
	case overdue:
		return domain.StateFailed
	case dueToday:
		return domain.StateAtRisk
	default:
		return domain.StateOnTrack
	}
}

// ClassifyCurrentWeek dispatches the current-week classification on the
// plan's outline kind.
func ClassifyCurrentWeek(plan *domain.Plan, entries []domain.ActivityEntry, sessions []domain.Session, today time.Time) (domain.CurrentWeekState, error) {
	if plan.OutlineKind == domain.OutlineScheduledSessions {
		return classifySessionWeek(plan, entries, sessions, today), nil
	}
	wp, err := WeekProgressFor(plan, entries, sessions, today)
	if err != nil {
		return "", err
	}
	return ClassifyWeek(plan.WeeklyTarget, wp.CompletedCount, today)
}
