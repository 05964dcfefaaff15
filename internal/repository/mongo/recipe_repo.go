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

const recipeCollectionName = "recipes"

// mongoRecipeRepository implements repository.RecipeRepository
type mongoRecipeRepository struct {
	collection *mongo.Collection
}

// NewMongoRecipeRepository creates a new recipe repository backed by MongoDB.
func NewMongoRecipeRepository(db *mongo.Database) repository.RecipeRepository {
	return &mongoRecipeRepository{
		collection: db.Collection(recipeCollectionName),
	}
}

// CreateIfAbsent inserts the recipe unless one with the same (owner, clientId)
// already exists; the surviving document is returned either way.
func (r *mongoRecipeRepository) CreateIfAbsent(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, error) {
	if recipe.Title == "" || recipe.OwnerID == primitive.NilObjectID || recipe.ClientID == "" {
		return nil, errors.New("recipe title, owner ID and client ID are required")
	}

	now := time.Now().UTC()
	filter := bson.M{"ownerId": recipe.OwnerID, "clientId": recipe.ClientID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"ownerId":         recipe.OwnerID,
			"clientId":        recipe.ClientID,
			"title":           recipe.Title,
			"description":     recipe.Description,
			"ingredients":     recipe.Ingredients,
			"instructions":    recipe.Instructions,
			"prepTimeMinutes": recipe.PrepTimeMinutes,
			"cookTimeMinutes": recipe.CookTimeMinutes,
			"servings":        recipe.Servings,
			"macros":          recipe.Macros,
			"tags":            recipe.Tags,
			"saved":           recipe.Saved,
			"conversationId":  recipe.ConversationID,
			"createdAt":       now,
			"updatedAt":       now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out domain.Recipe
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByOwner retrieves all saved recipes of a user, newest first.
func (r *mongoRecipeRepository) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Recipe, error) {
	var recipes []domain.Recipe
	filter := bson.M{"ownerId": ownerID}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// EnsureRecipeIndexes creates necessary indexes for the recipes collection.
func EnsureRecipeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
