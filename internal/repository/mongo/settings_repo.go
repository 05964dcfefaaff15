package mongo

import (
	"context"
	"errors"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const settingsCollectionName = "user_settings"

// mongoSettingsRepository implements repository.SettingsRepository
type mongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new settings repository backed by MongoDB.
func NewMongoSettingsRepository(db *mongo.Database) repository.SettingsRepository {
	return &mongoSettingsRepository{
		collection: db.Collection(settingsCollectionName),
	}
}

// GetByOwner retrieves a user's unit preferences.
func (r *mongoSettingsRepository) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.UserSettings, error) {
	var settings domain.UserSettings
	err := r.collection.FindOne(ctx, bson.M{"ownerId": ownerID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}
