package service

import (
	"context"
	"sync"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes shared by the service tests. They mimic the
// mongo repositories closely enough to exercise the services end to end
// without a database.

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	copied := *user
	r.users[user.ID] = &copied
	return user.ID, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

type memActivityRepo struct {
	mu         sync.Mutex
	activities map[primitive.ObjectID]*domain.Activity
}

func newMemActivityRepo(activities ...*domain.Activity) *memActivityRepo {
	repo := &memActivityRepo{activities: make(map[primitive.ObjectID]*domain.Activity)}
	for _, a := range activities {
		repo.activities[a.ID] = a
	}
	return repo
}

func (r *memActivityRepo) Create(_ context.Context, activity *domain.Activity) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.ID = primitive.NewObjectID()
	copied := *activity
	r.activities[activity.ID] = &copied
	return activity.ID, nil
}

func (r *memActivityRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memActivityRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Activity
	for _, a := range r.activities {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memActivityRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok || a.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.activities, id)
	return nil
}

type memPlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]*domain.Plan

	targetWrites int
	noteWrites   int
}

func newMemPlanRepo(plans ...*domain.Plan) *memPlanRepo {
	repo := &memPlanRepo{plans: make(map[primitive.ObjectID]*domain.Plan)}
	for _, p := range plans {
		repo.plans[p.ID] = p
	}
	return repo
}

func (r *memPlanRepo) Create(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = primitive.NewObjectID()
	copied := *plan
	r.plans[plan.ID] = &copied
	return plan.ID, nil
}

func (r *memPlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPlanRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPlanRepo) GetByUserAndActivityIDs(_ context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.plans {
		if p.UserID == userID && p.ContainsAnyActivity(activityIDs) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPlanRepo) Update(_ context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[plan.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *plan
	r.plans[plan.ID] = &copied
	return nil
}

func (r *memPlanRepo) UpdateTargetAndNotes(_ context.Context, planID primitive.ObjectID, weeklyTarget int, coachNotes string, adjustedWeekStart *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	p.WeeklyTarget = weeklyTarget
	p.CoachNotes = coachNotes
	p.AdjustedWeekStart = adjustedWeekStart
	r.targetWrites++
	return nil
}

func (r *memPlanRepo) UpdateCoachNotes(_ context.Context, planID primitive.ObjectID, coachNotes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	p.CoachNotes = coachNotes
	r.noteWrites++
	return nil
}

func (r *memPlanRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

func (r *memPlanRepo) coachingWrites() (targets, notes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targetWrites, r.noteWrites
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]*domain.Session
}

func newMemSessionRepo(sessions ...*domain.Session) *memSessionRepo {
	repo := &memSessionRepo{sessions: make(map[primitive.ObjectID]*domain.Session)}
	for _, s := range sessions {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.Session) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.ID = primitive.NewObjectID()
	copied := *session
	r.sessions[session.ID] = &copied
	return session.ID, nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memSessionRepo) GetByPlanInRange(_ context.Context, planID primitive.ObjectID, from, to time.Time) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.PlanID != planID {
			continue
		}
		if !s.TargetDate.Before(from) && s.TargetDate.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.PlanID == planID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Update(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

type memEntryRepo struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*domain.ActivityEntry

	rangeCalls int
}

func newMemEntryRepo(entries ...*domain.ActivityEntry) *memEntryRepo {
	repo := &memEntryRepo{entries: make(map[primitive.ObjectID]*domain.ActivityEntry)}
	for _, e := range entries {
		repo.entries[e.ID] = e
	}
	return repo
}

func (r *memEntryRepo) Create(_ context.Context, entry *domain.ActivityEntry) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	copied := *entry
	r.entries[entry.ID] = &copied
	return entry.ID, nil
}

func (r *memEntryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *memEntryRepo) GetByActivityIDsInRange(_ context.Context, activityIDs []primitive.ObjectID, from, to time.Time) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rangeCalls++
	var out []domain.ActivityEntry
	for _, e := range r.entries {
		match := false
		for _, id := range activityIDs {
			if e.ActivityID == id {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Date.Before(to) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *memEntryRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivityEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memEntryRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *memEntryRepo) rangeCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rangeCalls
}

// recordingDispatcher captures follow-up deliveries.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []string
}

func (d *recordingDispatcher) Deliver(_ context.Context, _ primitive.ObjectID, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	return nil
}

func (d *recordingDispatcher) deliveredCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}
