package progress

import (
	"errors"
	"fmt"
	"time"

	"habitloop/habit-app/internal/domain"
)

// ErrInvalidWeeklyTarget signals a data-integrity bug upstream: a
// times-per-week plan whose weekly target dropped below 1. It is surfaced
// loudly rather than coerced, because silently fixing it would mask
// corrupted plan state.
var ErrInvalidWeeklyTarget = errors.New("plan weekly target must be at least 1")

// WeekProgressFor computes the completion outcome of the week containing day.
//
// For TIMES_PER_WEEK plans the completed count is the number of distinct
// calendar days in the week with at least one entry for a plan activity;
// duplicate entries on the same day count once. For SCHEDULED_SESSIONS plans
// every committed session planned in the week must have a matching entry;
// partial credit is not given, and a week with zero planned sessions is not
// completed (an empty plan proves nothing).
//
// Entries for activities outside the plan are ignored.
func WeekProgressFor(plan *domain.Plan, entries []domain.ActivityEntry, sessions []domain.Session, day time.Time) (domain.WeekProgress, error) {
	weekStart := WeekStart(day)
	weekEnd := weekStart.AddDate(0, 0, 7)

	switch plan.OutlineKind {
	case domain.OutlineTimesPerWeek:
		if plan.WeeklyTarget < 1 {
			return domain.WeekProgress{}, fmt.Errorf("plan %s: %w", plan.ID.Hex(), ErrInvalidWeeklyTarget)
		}
		activeDays := make(map[time.Time]struct{})
		for _, e := range entries {
			if !plan.ContainsActivity(e.ActivityID) {
				continue
			}
			dayKey := DayKey(e.Date)
			if inWindow(dayKey, weekStart, weekEnd) {
				activeDays[dayKey] = struct{}{}
			}
		}
		completed := len(activeDays)
		return domain.WeekProgress{
			IsCompleted:    completed >= plan.WeeklyTarget,
			CompletedCount: completed,
			RequiredCount:  plan.WeeklyTarget,
		}, nil

	case domain.OutlineScheduledSessions:
		planned := weekSessions(sessions, weekStart, weekEnd)
		completed := 0
		for _, s := range planned {
			if sessionMatched(s, plan, entries, weekStart, weekEnd) {
				completed++
			}
		}
		return domain.WeekProgress{
			IsCompleted:    len(planned) > 0 && completed == len(planned),
			CompletedCount: completed,
			RequiredCount:  len(planned),
		}, nil

	default:
		return domain.WeekProgress{}, fmt.Errorf("unknown plan outline kind %q", plan.OutlineKind)
	}
}

// weekSessions filters the committed (non-provisional) sessions whose target
// date falls in [weekStart, weekEnd).
func weekSessions(sessions []domain.Session, weekStart, weekEnd time.Time) []domain.Session {
	var planned []domain.Session
	for _, s := range sessions {
		if s.IsCoachSuggested {
			// Coach-suggested sessions are provisional until committed.
			continue
		}
		if inWindow(DayKey(s.TargetDate), weekStart, weekEnd) {
			planned = append(planned, s)
		}
	}
	return planned
}

// sessionMatched reports whether a planned session has at least one entry for
// the same activity within the week window.
func sessionMatched(session domain.Session, plan *domain.Plan, entries []domain.ActivityEntry, weekStart, weekEnd time.Time) bool {
	for _, e := range entries {
		if e.ActivityID != session.ActivityID {
			continue
		}
		if !plan.ContainsActivity(e.ActivityID) {
			continue
		}
		if inWindow(DayKey(e.Date), weekStart, weekEnd) {
			return true
		}
	}
	return false
}
