package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OutlineKind distinguishes how a plan's weekly obligation is expressed.
type OutlineKind string

const (
	// OutlineTimesPerWeek plans require N distinct active days per week.
	OutlineTimesPerWeek OutlineKind = "TIMES_PER_WEEK"
	// OutlineScheduledSessions plans require every planned session in a week
	// to be matched by a logged entry.
	OutlineScheduledSessions OutlineKind = "SCHEDULED_SESSIONS"
)

// Plan is a user's recurring or scheduled commitment to one or more activities.
type Plan struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID   `bson:"userId" json:"userId"`
	Name        string               `bson:"name" json:"name"`
	ActivityIDs []primitive.ObjectID `bson:"activityIds" json:"activityIds"`
	OutlineKind OutlineKind          `bson:"outlineKind" json:"outlineKind"`
	// WeeklyTarget is the number of distinct active days required per week.
	// Only meaningful for TIMES_PER_WEEK plans; always >= 1 once set.
	WeeklyTarget int        `bson:"weeklyTarget,omitempty" json:"weeklyTarget,omitempty"`
	FinishDate   *time.Time `bson:"finishDate,omitempty" json:"finishDate,omitempty"`
	CoachNotes   string     `bson:"coachNotes,omitempty" json:"coachNotes,omitempty"`
	// IsCoached marks the plan as actively coached: logging an entry against it
	// refreshes coach notes and schedules a follow-up message.
	IsCoached bool `bson:"isCoached" json:"isCoached"`
	// AdjustedWeekStart records the week for which the auto-adjustment already
	// ran, so re-entering FAILED within the same week never decrements twice.
	AdjustedWeekStart *time.Time `bson:"adjustedWeekStart,omitempty" json:"-"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt         *time.Time `bson:"deletedAt,omitempty" json:"-"`
}

// ContainsActivity reports whether the given activity belongs to the plan.
func (p *Plan) ContainsActivity(activityID primitive.ObjectID) bool {
	for _, id := range p.ActivityIDs {
		if id == activityID {
			return true
		}
	}
	return false
}

// ContainsAnyActivity reports whether the plan's activity set intersects ids.
func (p *Plan) ContainsAnyActivity(ids []primitive.ObjectID) bool {
	for _, id := range ids {
		if p.ContainsActivity(id) {
			return true
		}
	}
	return false
}

// Session is one planned occurrence inside a SCHEDULED_SESSIONS plan: a target
// activity, a target date and a target quantity. Coach-suggested sessions are
// provisional and excluded from completion requirements until committed.
type Session struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID           primitive.ObjectID `bson:"planId" json:"planId"`
	ActivityID       primitive.ObjectID `bson:"activityId" json:"activityId"`
	TargetDate       time.Time          `bson:"targetDate" json:"targetDate"`
	TargetQuantity   float64            `bson:"targetQuantity" json:"targetQuantity"`
	IsCoachSuggested bool               `bson:"isCoachSuggested" json:"isCoachSuggested"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt        *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}
