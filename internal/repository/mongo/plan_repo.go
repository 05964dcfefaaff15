package mongo

import (
	"context"
	"errors"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "workout_plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new plan repository backed by MongoDB.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// CreateIfAbsent inserts the plan unless one with the same (owner, clientId)
// already exists; the surviving document is returned either way.
func (r *mongoPlanRepository) CreateIfAbsent(ctx context.Context, plan *domain.WorkoutPlan) (*domain.WorkoutPlan, error) {
	if plan.Name == "" || plan.OwnerID == primitive.NilObjectID || plan.ClientID == "" {
		return nil, errors.New("plan name, owner ID and client ID are required")
	}

	now := time.Now().UTC()
	filter := bson.M{"ownerId": plan.OwnerID, "clientId": plan.ClientID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"ownerId":       plan.OwnerID,
			"clientId":      plan.ClientID,
			"name":          plan.Name,
			"description":   plan.Description,
			"goal":          plan.Goal,
			"durationWeeks": plan.DurationWeeks,
			"startDate":     plan.StartDate,
			"status":        plan.Status,
			"createdAt":     now,
			"updatedAt":     now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out domain.WorkoutPlan
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves a plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByClientID resolves a plan by its caller-supplied client identity.
// The owner filter keeps one user from addressing another user's plan.
func (r *mongoPlanRepository) GetByClientID(ctx context.Context, ownerID primitive.ObjectID, clientID string) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	filter := bson.M{"ownerId": ownerID, "clientId": clientID}
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetActiveByOwner retrieves the user's single active plan (most recent when
// more than one is marked active).
func (r *mongoPlanRepository) GetActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	filter := bson.M{"ownerId": ownerID, "status": domain.PlanActive}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// PatchMetadata updates only the metadata fields present in the patch.
func (r *mongoPlanRepository) PatchMetadata(ctx context.Context, ownerID, planID primitive.ObjectID, patch repository.PlanMetadataPatch) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}

	filter := bson.M{"_id": planID, "ownerId": ownerID}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes for the plans collection.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
