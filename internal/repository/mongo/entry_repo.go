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

const entryCollectionName = "entries"

// mongoEntryRepository implements repository.EntryRepository
type mongoEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoEntryRepository creates a new ActivityEntry repository.
func NewMongoEntryRepository(db *mongo.Database) repository.EntryRepository {
	return &mongoEntryRepository{
		collection: db.Collection(entryCollectionName),
	}
}

// Create inserts a new activity entry. The entry date must already be
// normalized to a midnight-UTC day key by the service layer.
func (r *mongoEntryRepository) Create(ctx context.Context, entry *domain.ActivityEntry) (primitive.ObjectID, error) {
	if entry.UserID == primitive.NilObjectID || entry.ActivityID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("entry requires userId and activityId")
	}
	if entry.Date.IsZero() {
		return primitive.NilObjectID, errors.New("entry requires a date")
	}
	entry.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted entry ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single entry by its ID, excluding soft-deleted ones.
func (r *mongoEntryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ActivityEntry, error) {
	var entry domain.ActivityEntry
	filter := notDeleted()
	filter["_id"] = id

	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetByActivityIDsInRange lists entries for any of the given activities with a
// date in [from, to). A zero bound leaves that side of the range open.
func (r *mongoEntryRepository) GetByActivityIDsInRange(ctx context.Context, activityIDs []primitive.ObjectID, from, to time.Time) ([]domain.ActivityEntry, error) {
	if len(activityIDs) == 0 {
		return []domain.ActivityEntry{}, nil
	}
	var entries []domain.ActivityEntry
	filter := notDeleted()
	filter["activityId"] = bson.M{"$in": activityIDs}

	dateFilter := bson.M{}
	if !from.IsZero() {
		dateFilter["$gte"] = from
	}
	if !to.IsZero() {
		dateFilter["$lt"] = to
	}
	if len(dateFilter) > 0 {
		filter["date"] = dateFilter
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByUserID retrieves all entries logged by a user, oldest first.
func (r *mongoEntryRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ActivityEntry, error) {
	var entries []domain.ActivityEntry
	filter := notDeleted()
	filter["userId"] = userID
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete soft-deletes an entry owned by the given user.
func (r *mongoEntryRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
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

// EnsureEntryIndexes creates necessary indexes. Call during startup.
func EnsureEntryIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: entries for a set of activities in a date window.
			Keys:    bson.D{{Key: "activityId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Not fatal: queries still work without the index, just slower.
		log.Printf("WARN: failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
