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

const activityCollectionName = "activities"

// mongoActivityRepository implements repository.ActivityRepository
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new Activity repository.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// notDeleted is the soft-delete filter shared by all read queries.
func notDeleted() bson.M {
	return bson.M{"deletedAt": bson.M{"$exists": false}}
}

// Create inserts a new activity.
func (r *mongoActivityRepository) Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error) {
	if activity.UserID == primitive.NilObjectID || activity.Name == "" {
		return primitive.NilObjectID, errors.New("activity requires userId and name")
	}
	activity.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted activity ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single activity by its ID, excluding soft-deleted ones.
func (r *mongoActivityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	var activity domain.Activity
	filter := notDeleted()
	filter["_id"] = id

	err := r.collection.FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// GetByUserID retrieves all activities owned by a user.
func (r *mongoActivityRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Activity, error) {
	var activities []domain.Activity
	filter := notDeleted()
	filter["userId"] = userID
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

// Delete soft-deletes an activity owned by the given user.
func (r *mongoActivityRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
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
		return repository.ErrNotFound
	}
	return nil
}

// EnsureActivityIndexes creates necessary indexes. Call during startup.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
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
