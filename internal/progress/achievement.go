package progress

import (
	"time"

	"habitloop/habit-app/internal/domain"
)

// Thresholds are the streak lengths (in weeks) that unlock the two
// achievement tiers. Habit must be strictly smaller than lifestyle.
type Thresholds struct {
	HabitWeeks     int
	LifestyleWeeks int
}

// DefaultThresholds mirror the default coaching configuration.
var DefaultThresholds = Thresholds{HabitWeeks: 4, LifestyleWeeks: 12}

// Engine rolls weekly completion outcomes into streaks and tier achievements.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an achievement engine. Invalid thresholds fall back to
// the defaults so a misconfigured deployment degrades predictably.
func NewEngine(t Thresholds) *Engine {
	if t.HabitWeeks < 1 || t.LifestyleWeeks <= t.HabitWeeks {
		t = DefaultThresholds
	}
	return &Engine{thresholds: t}
}

// Achievements walks every week from the plan's first relevant entry to the
// week containing asOf, inclusive, and accumulates the streak and the two
// tier records.
//
// Streak rules: every completed week increments the streak. A single missed
// week in the past is forgiven; the second consecutive miss (and each further
// one) costs one streak week. The week still in progress is never counted as
// a miss, since it can still be completed.
func (e *Engine) Achievements(plan *domain.Plan, entries []domain.ActivityEntry, sessions []domain.Session, asOf time.Time) (domain.AchievementResult, domain.TierAchievement, domain.TierAchievement, error) {
	var result domain.AchievementResult

	start, ok := firstRelevantWeek(plan, entries)
	if !ok {
		// No relevant entries yet: a zeroed result, not an error.
		return result, e.tier(domain.TierHabit, 0), e.tier(domain.TierLifestyle, 0), nil
	}

	currentWeek := WeekStart(asOf)
	streak, completedWeeks, incompleteRun, totalWeeks := 0, 0, 0, 0

	for ws := start; !ws.After(currentWeek); ws = ws.AddDate(0, 0, 7) {
		wp, err := WeekProgressFor(plan, entries, sessions, ws)
		if err != nil {
			return result, domain.TierAchievement{}, domain.TierAchievement{}, err
		}
		totalWeeks++

		if wp.IsCompleted {
			streak++
			completedWeeks++
			incompleteRun = 0
			continue
		}
		if ws.Equal(currentWeek) {
			// The in-progress week is provisional; it never counts as a miss.
			continue
		}
		incompleteRun++
		if incompleteRun >= 2 && streak > 0 {
			streak--
		}
	}

	result.Streak = streak
	result.CompletedWeeks = completedWeeks
	result.IncompleteWeeks = incompleteRun
	result.TotalWeeks = totalWeeks
	result.IsAchieved = streak >= e.thresholds.HabitWeeks
	if remaining := e.thresholds.HabitWeeks - streak; remaining > 0 {
		result.WeeksToAchieve = remaining
	}

	return result, e.tier(domain.TierHabit, streak), e.tier(domain.TierLifestyle, streak), nil
}

// tier builds the progress record of one badge tier from the streak signal.
func (e *Engine) tier(name domain.AchievementTier, streak int) domain.TierAchievement {
	threshold := e.thresholds.HabitWeeks
	if name == domain.TierLifestyle {
		threshold = e.thresholds.LifestyleWeeks
	}
	progress := streak
	if progress > threshold {
		progress = threshold
	}
	return domain.TierAchievement{
		Tier:               name,
		ProgressValue:      progress,
		MaxValue:           threshold,
		IsAchieved:         streak >= threshold,
		ProgressPercentage: float64(progress) / float64(threshold) * 100,
	}
}

// firstRelevantWeek finds the week of the earliest entry belonging to one of
// the plan's activities.
func firstRelevantWeek(plan *domain.Plan, entries []domain.ActivityEntry) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, e := range entries {
		if !plan.ContainsActivity(e.ActivityID) {
			continue
		}
		day := DayKey(e.Date)
		if !found || day.Before(earliest) {
			earliest = day
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return WeekStart(earliest), true
}
