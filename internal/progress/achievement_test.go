package progress

import (
	"testing"
	"time"

	"habitloop/habit-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sunday week starts used by the fixtures below.
var (
	week1 = date(2025, 5, 4)
	week2 = date(2025, 5, 11)
	week3 = date(2025, 5, 18)
	week4 = date(2025, 5, 25)
	week5 = date(2025, 6, 1)
	week6 = date(2025, 6, 8)
	week7 = date(2025, 6, 15)
)

// entriesForWeeks produces one entry per listed week, enough to complete a
// target-1 plan.
func entriesForWeeks(activityID primitive.ObjectID, weeks ...time.Time) []domain.ActivityEntry {
	var entries []domain.ActivityEntry
	for _, ws := range weeks {
		entries = append(entries, entryOn(activityID, ws))
	}
	return entries
}

func TestEngine_Achievements_Streak(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(1, activityID)
	engine := NewEngine(DefaultThresholds)

	t.Run("consecutive completed weeks build the streak", func(t *testing.T) {
		entries := entriesForWeeks(activityID, week1, week2, week3, week4)
		result, _, _, err := engine.Achievements(plan, entries, nil, week4.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 4, result.Streak)
		assert.Equal(t, 4, result.CompletedWeeks)
		assert.Equal(t, 4, result.TotalWeeks)
		assert.True(t, result.IsAchieved)
		assert.Equal(t, 0, result.WeeksToAchieve)
	})

	t.Run("a single isolated miss is forgiven", func(t *testing.T) {
		// week3 missed, week4 completed again.
		entries := entriesForWeeks(activityID, week1, week2, week4)
		result, _, _, err := engine.Achievements(plan, entries, nil, week4.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 3, result.Streak)
		assert.Equal(t, 3, result.CompletedWeeks)
		assert.Equal(t, 0, result.IncompleteWeeks, "the completed week resets the miss counter")
	})

	t.Run("a completed week resets the incomplete counter", func(t *testing.T) {
		// week3 missed, week4 completed, asOf still in week4.
		entries := entriesForWeeks(activityID, week1, week2, week4)
		result, _, _, err := engine.Achievements(plan, entries, nil, week4.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 0, result.IncompleteWeeks)
	})

	t.Run("incomplete counter tracks only the trailing misses", func(t *testing.T) {
		// week2 missed, week3 completed, week4-5 missed, asOf in week6.
		entries := entriesForWeeks(activityID, week1, week3)
		result, _, _, err := engine.Achievements(plan, entries, nil, week6.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 2, result.IncompleteWeeks, "the week2 miss is behind a completed week")
	})

	t.Run("a second consecutive miss costs one streak week", func(t *testing.T) {
		// week1-3 completed, week4-5 missed, asOf in week6.
		entries := entriesForWeeks(activityID, week1, week2, week3)
		result, _, _, err := engine.Achievements(plan, entries, nil, week6.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Streak)
		assert.Equal(t, 2, result.IncompleteWeeks)
	})

	t.Run("every further consecutive miss keeps eroding the streak", func(t *testing.T) {
		// week1-3 completed, week4-6 missed, asOf in week7.
		entries := entriesForWeeks(activityID, week1, week2, week3)
		result, _, _, err := engine.Achievements(plan, entries, nil, week7.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Streak)
		assert.Equal(t, 3, result.IncompleteWeeks)
	})

	t.Run("streak never goes negative", func(t *testing.T) {
		// One completed week followed by many misses.
		entries := entriesForWeeks(activityID, week1)
		result, _, _, err := engine.Achievements(plan, entries, nil, week7.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Equal(t, 0, result.Streak)
	})

	t.Run("the in-progress week never counts as a miss", func(t *testing.T) {
		entries := entriesForWeeks(activityID, week1)
		// asOf early in week2, nothing logged there yet.
		result, _, _, err := engine.Achievements(plan, entries, nil, week2.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Streak)
		assert.Equal(t, 0, result.IncompleteWeeks)
		assert.Equal(t, 2, result.TotalWeeks)
	})

	t.Run("a completed in-progress week counts immediately", func(t *testing.T) {
		entries := entriesForWeeks(activityID, week1, week2)
		result, _, _, err := engine.Achievements(plan, entries, nil, week2.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Streak)
	})

	t.Run("no relevant entries yields a zeroed result", func(t *testing.T) {
		result, habit, lifestyle, err := engine.Achievements(plan, nil, nil, week4)
		require.NoError(t, err)
		assert.Zero(t, result.Streak)
		assert.Zero(t, result.TotalWeeks)
		assert.False(t, result.IsAchieved)
		assert.Equal(t, 0, habit.ProgressValue)
		assert.Equal(t, 0, lifestyle.ProgressValue)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		entries := entriesForWeeks(activityID, week1, week2, week4)
		asOf := week4.AddDate(0, 0, 3)
		first, h1, l1, err := engine.Achievements(plan, entries, nil, asOf)
		require.NoError(t, err)
		second, h2, l2, err := engine.Achievements(plan, entries, nil, asOf)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, h1, h2)
		assert.Equal(t, l1, l2)
	})
}

func TestEngine_Achievements_Tiers(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(1, activityID)
	engine := NewEngine(DefaultThresholds)

	entries := entriesForWeeks(activityID, week1, week2, week3, week4)
	_, habit, lifestyle, err := engine.Achievements(plan, entries, nil, week4.AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, domain.TierHabit, habit.Tier)
	assert.True(t, habit.IsAchieved)
	assert.Equal(t, 4, habit.ProgressValue)
	assert.Equal(t, 4, habit.MaxValue)
	assert.InDelta(t, 100.0, habit.ProgressPercentage, 0.001)

	assert.Equal(t, domain.TierLifestyle, lifestyle.Tier)
	assert.False(t, lifestyle.IsAchieved)
	assert.Equal(t, 4, lifestyle.ProgressValue)
	assert.Equal(t, 12, lifestyle.MaxValue)
	assert.InDelta(t, 100.0/3.0, lifestyle.ProgressPercentage, 0.001)
}

func TestEngine_Achievements_WeeksToAchieve(t *testing.T) {
	activityID := primitive.NewObjectID()
	plan := timesPerWeekPlan(1, activityID)
	engine := NewEngine(DefaultThresholds)

	entries := entriesForWeeks(activityID, week1, week2)
	result, _, _, err := engine.Achievements(plan, entries, nil, week2.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Streak)
	assert.False(t, result.IsAchieved)
	assert.Equal(t, 2, result.WeeksToAchieve)
}

func TestNewEngine_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name string
		in   Thresholds
	}{
		{"zero habit weeks", Thresholds{HabitWeeks: 0, LifestyleWeeks: 12}},
		{"lifestyle not above habit", Thresholds{HabitWeeks: 4, LifestyleWeeks: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.in)
			assert.Equal(t, DefaultThresholds, engine.thresholds)
		})
	}
}
