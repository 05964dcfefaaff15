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

const exerciseCollectionName = "exercise_definitions"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new exercise-library repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// GetOrCreate inserts a definition unless one already exists for the
// (owner, normalized name) pair, and returns the surviving row either way.
// The upsert with $setOnInsert makes concurrent and retried calls converge on
// a single document.
func (r *mongoExerciseRepository) GetOrCreate(ctx context.Context, def *domain.ExerciseDefinition) (*domain.ExerciseDefinition, error) {
	if def.Name == "" || def.OwnerID == primitive.NilObjectID {
		return nil, errors.New("exercise name and owner ID are required")
	}
	if !domain.ValidMeasurementType(def.Type) {
		return nil, errors.New("invalid measurement type: " + string(def.Type))
	}

	def.NameKey = domain.ExerciseNameKey(def.Name)
	now := time.Now().UTC()

	filter := bson.M{"ownerId": def.OwnerID, "nameKey": def.NameKey}
	update := bson.M{
		"$setOnInsert": bson.M{
			"ownerId":         def.OwnerID,
			"clientId":        def.ClientID,
			"name":            def.Name,
			"nameKey":         def.NameKey,
			"measurementType": def.Type,
			"createdAt":       now,
			"updatedAt":       now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out domain.ExerciseDefinition
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves a definition by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseDefinition, error) {
	var def domain.ExerciseDefinition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&def)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

// GetByOwner retrieves the full exercise library of a user, oldest first.
func (r *mongoExerciseRepository) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.ExerciseDefinition, error) {
	var defs []domain.ExerciseDefinition
	filter := bson.M{"ownerId": ownerID}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// EnsureExerciseIndexes creates necessary indexes for the exercise library.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One definition per (owner, normalized name); backs GetOrCreate.
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "nameKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
