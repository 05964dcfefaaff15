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

const planDayCollectionName = "plan_days"

// mongoPlanDayRepository implements repository.PlanDayRepository
type mongoPlanDayRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanDayRepository creates a new plan-day repository backed by MongoDB.
func NewMongoPlanDayRepository(db *mongo.Database) repository.PlanDayRepository {
	return &mongoPlanDayRepository{
		collection: db.Collection(planDayCollectionName),
	}
}

// CreateIfAbsent inserts the day unless its (planId, week, dayOfWeek) cell is
// already occupied; the surviving document is returned either way.
func (r *mongoPlanDayRepository) CreateIfAbsent(ctx context.Context, day *domain.PlanDay) (*domain.PlanDay, error) {
	if day.PlanID == primitive.NilObjectID || day.OwnerID == primitive.NilObjectID {
		return nil, errors.New("plan ID and owner ID are required")
	}

	now := time.Now().UTC()
	filter := bson.M{"planId": day.PlanID, "week": day.Week, "dayOfWeek": day.DayOfWeek}
	insert := bson.M{
		"ownerId":   day.OwnerID,
		"clientId":  day.ClientID,
		"planId":    day.PlanID,
		"week":      day.Week,
		"dayOfWeek": day.DayOfWeek,
		"label":     day.Label,
		"notes":     day.Notes,
		"status":    day.Status,
		"createdAt": now,
		"updatedAt": now,
	}
	if day.TemplateID != nil {
		insert["templateId"] = *day.TemplateID
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out domain.PlanDay
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": insert}, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByPlanID retrieves all days of a plan ordered by (week, dayOfWeek).
func (r *mongoPlanDayRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanDay, error) {
	var days []domain.PlanDay
	filter := bson.M{"planId": planID}

	findOptions := options.Find().SetSort(bson.D{
		{Key: "week", Value: 1},
		{Key: "dayOfWeek", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// FindByCell retrieves the day occupying one (week, dayOfWeek) cell, if any.
func (r *mongoPlanDayRepository) FindByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int) (*domain.PlanDay, error) {
	var day domain.PlanDay
	filter := bson.M{"planId": planID, "week": week, "dayOfWeek": dayOfWeek}
	err := r.collection.FindOne(ctx, filter).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// PatchByCell updates only the fields present in the patch on one cell.
func (r *mongoPlanDayRepository) PatchByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int, patch repository.PlanDayPatch) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.TemplateID != nil {
		set["templateId"] = *patch.TemplateID
	}
	if patch.Label != nil {
		set["label"] = *patch.Label
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	filter := bson.M{"planId": planID, "week": week, "dayOfWeek": dayOfWeek}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByCell removes the day occupying one (week, dayOfWeek) cell.
func (r *mongoPlanDayRepository) DeleteByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int) error {
	filter := bson.M{"planId": planID, "week": week, "dayOfWeek": dayOfWeek}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanDayIndexes creates necessary indexes for the plan-days collection.
func EnsurePlanDayIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One document per grid cell; backs CreateIfAbsent.
			Keys: bson.D{
				{Key: "planId", Value: 1},
				{Key: "week", Value: 1},
				{Key: "dayOfWeek", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
