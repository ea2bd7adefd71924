package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"habitloop/habit-app/internal/domain"
	"habitloop/habit-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || plan.Name == "" {
		return primitive.NilObjectID, errors.New("plan requires userId and name")
	}
	if plan.OutlineKind == domain.OutlineTimesPerWeek && plan.WeeklyTarget < 1 {
		return primitive.NilObjectID, errors.New("times-per-week plan requires a weekly target of at least 1")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID, excluding soft-deleted ones.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	filter := notDeleted()
	filter["_id"] = id

	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByUserID retrieves all plans owned by a user, newest first.
func (r *mongoPlanRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	var plans []domain.Plan
	filter := notDeleted()
	filter["userId"] = userID
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	// Return empty slice if no plans found (not an error)
	return plans, nil
}

// GetByUserAndActivityIDs retrieves the user's plans whose activity set
// intersects the given activity IDs.
func (r *mongoPlanRepository) GetByUserAndActivityIDs(ctx context.Context, userID primitive.ObjectID, activityIDs []primitive.ObjectID) ([]domain.Plan, error) {
	if len(activityIDs) == 0 {
		return []domain.Plan{}, nil
	}
	var plans []domain.Plan
	filter := notDeleted()
	filter["userId"] = userID
	filter["activityIds"] = bson.M{"$in": activityIDs}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update persists the user-editable fields of a plan.
// Ownership and timestamps are handled here; UserID and CreatedAt never change.
func (r *mongoPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	if plan.ID == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}

	filter := notDeleted()
	filter["_id"] = plan.ID
	updateDoc := bson.M{
		"$set": bson.M{
			"name":         plan.Name,
			"activityIds":  plan.ActivityIDs,
			"outlineKind":  plan.OutlineKind,
			"weeklyTarget": plan.WeeklyTarget,
			"finishDate":   plan.FinishDate,
			"isCoached":    plan.IsCoached,
			"updatedAt":    time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateTargetAndNotes persists the fields mutated by the coaching engine.
func (r *mongoPlanRepository) UpdateTargetAndNotes(ctx context.Context, planID primitive.ObjectID, weeklyTarget int, coachNotes string, adjustedWeekStart *time.Time) error {
	if planID == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}
	if weeklyTarget < 1 {
		return errors.New("weekly target must be at least 1")
	}

	filter := notDeleted()
	filter["_id"] = planID
	updateDoc := bson.M{
		"$set": bson.M{
			"weeklyTarget":      weeklyTarget,
			"coachNotes":        coachNotes,
			"adjustedWeekStart": adjustedWeekStart,
			"updatedAt":         time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateCoachNotes overwrites the plan's coach-notes text.
func (r *mongoPlanRepository) UpdateCoachNotes(ctx context.Context, planID primitive.ObjectID, coachNotes string) error {
	if planID == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}

	filter := notDeleted()
	filter["_id"] = planID
	updateDoc := bson.M{
		"$set": bson.M{
			"coachNotes": coachNotes,
			"updatedAt":  time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete soft-deletes a plan owned by the given user.
func (r *mongoPlanRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	if id == primitive.NilObjectID || userID == primitive.NilObjectID {
		return errors.New("plan ID and user ID are required for deletion")
	}

	// Filter ensures the plan exists AND belongs to the user.
	filter := notDeleted()
	filter["_id"] = id
	filter["userId"] = userID

	update := bson.M{"$set": bson.M{
		"deletedAt": time.Now().UTC(),
		"updatedAt": time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the plan didn't exist or it belongs to someone else.
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: a user's plans intersecting a set of activities.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "activityIds", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Not fatal: queries still work without the index, just slower.
		log.Printf("WARN: failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
