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

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new planned session.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.PlanID == primitive.NilObjectID || session.ActivityID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires planId and activityId")
	}
	if session.TargetDate.IsZero() {
		return primitive.NilObjectID, errors.New("session requires a target date")
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID, excluding soft-deleted ones.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	filter := notDeleted()
	filter["_id"] = id

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByPlanInRange lists a plan's sessions with a target date in [from, to).
func (r *mongoSessionRepository) GetByPlanInRange(ctx context.Context, planID primitive.ObjectID, from, to time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	filter := notDeleted()
	filter["planId"] = planID
	filter["targetDate"] = bson.M{"$gte": from, "$lt": to}
	findOptions := options.Find().SetSort(bson.D{{Key: "targetDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByPlanID lists all sessions of a plan.
func (r *mongoSessionRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.Session, error) {
	var sessions []domain.Session
	filter := notDeleted()
	filter["planId"] = planID
	findOptions := options.Find().SetSort(bson.D{{Key: "targetDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update persists the mutable fields of a session (target date/quantity and
// the coach-suggested flag flipped on commit).
func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}

	filter := notDeleted()
	filter["_id"] = session.ID
	updateDoc := bson.M{
		"$set": bson.M{
			"targetDate":       session.TargetDate,
			"targetQuantity":   session.TargetQuantity,
			"isCoachSuggested": session.IsCoachSuggested,
			"updatedAt":        time.Now().UTC(),
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

// EnsureSessionIndexes creates necessary indexes. Call during startup.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: a plan's sessions in a week window.
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "targetDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Not fatal: queries still work without the index, just slower.
		log.Printf("WARN: failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
