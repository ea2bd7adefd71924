package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentWeekState classifies the week still in progress.
type CurrentWeekState string

const (
	StateOnTrack   CurrentWeekState = "ON_TRACK"
	StateAtRisk    CurrentWeekState = "AT_RISK"
	StateFailed    CurrentWeekState = "FAILED"
	StateCompleted CurrentWeekState = "COMPLETED"
)

// WeekProgress is the completion outcome of a single week.
type WeekProgress struct {
	IsCompleted    bool `json:"isCompleted"`
	CompletedCount int  `json:"completedCount"`
	RequiredCount  int  `json:"requiredCount"`
}

// AchievementResult is the rolled-up outcome of walking every week from a
// plan's first relevant entry to the current week.
type AchievementResult struct {
	// Streak counts consecutive completed weeks, tolerant of a single
	// isolated miss.
	Streak         int `json:"streak"`
	CompletedWeeks int `json:"completedWeeks"`
	// IncompleteWeeks counts the consecutive misses immediately preceding
	// the current week; any completed week resets it to zero.
	IncompleteWeeks int  `json:"incompleteWeeks"`
	TotalWeeks      int  `json:"totalWeeks"`
	IsAchieved      bool `json:"isAchieved"`
	WeeksToAchieve  int  `json:"weeksToAchieve"`
}

// AchievementTier names the two long-horizon badges.
type AchievementTier string

const (
	TierHabit     AchievementTier = "habit"
	TierLifestyle AchievementTier = "lifestyle"
)

// TierAchievement is the progress record for one badge tier. Both tiers share
// the streak signal but compare it against different week thresholds.
type TierAchievement struct {
	Tier               AchievementTier `json:"tier"`
	ProgressValue      int             `json:"progressValue"`
	MaxValue           int             `json:"maxValue"`
	IsAchieved         bool            `json:"isAchieved"`
	ProgressPercentage float64         `json:"progressPercentage"`
}

// PlanProgress is the full, cacheable progress picture for one plan.
type PlanProgress struct {
	PlanID      primitive.ObjectID `json:"planId"`
	Achievement AchievementResult  `json:"achievement"`
	Habit       TierAchievement    `json:"habit"`
	Lifestyle   TierAchievement    `json:"lifestyle"`
	State       CurrentWeekState   `json:"currentWeekState"`
	Week        WeekProgress       `json:"currentWeek"`
	ComputedAt  time.Time          `json:"computedAt"`
}
