package mongo

import (
	"context"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutLogCollectionName = "workout_logs"

// mongoWorkoutLogRepository implements repository.WorkoutLogRepository
type mongoWorkoutLogRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutLogRepository creates a new workout-log repository backed by MongoDB.
// This repository is read-only: logs are written by the tracking surface.
func NewMongoWorkoutLogRepository(db *mongo.Database) repository.WorkoutLogRepository {
	return &mongoWorkoutLogRepository{
		collection: db.Collection(workoutLogCollectionName),
	}
}

// GetSince retrieves logs dated at or after since, most recent first.
func (r *mongoWorkoutLogRepository) GetSince(ctx context.Context, ownerID primitive.ObjectID, since time.Time, limit int) ([]domain.WorkoutLog, error) {
	filter := bson.M{"ownerId": ownerID, "date": bson.M{"$gte": since}}
	return r.find(ctx, filter, limit)
}

// GetRecent retrieves the most recent logs regardless of age.
func (r *mongoWorkoutLogRepository) GetRecent(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]domain.WorkoutLog, error) {
	return r.find(ctx, bson.M{"ownerId": ownerID}, limit)
}

func (r *mongoWorkoutLogRepository) find(ctx context.Context, filter bson.M, limit int) ([]domain.WorkoutLog, error) {
	var logs []domain.WorkoutLog

	findOptions := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// CountByOwner returns the total number of logged sessions for a user.
func (r *mongoWorkoutLogRepository) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"ownerId": ownerID})
}

// GetDistinctDates returns distinct session dates, most recent first, capped
// at limit. Used for streak computation, which only needs the date sequence.
func (r *mongoWorkoutLogRepository) GetDistinctDates(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]time.Time, error) {
	logs, err := r.find(ctx, bson.M{"ownerId": ownerID}, limit)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	seen := make(map[string]bool)
	for _, l := range logs {
		day := l.Date.UTC().Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// EnsureWorkoutLogIndexes creates necessary indexes for the logs collection.
func EnsureWorkoutLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
