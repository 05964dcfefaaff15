package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name   string  `bson:"name" json:"name"`
	Amount float64 `bson:"amount" json:"amount"`
	Unit   string  `bson:"unit,omitempty" json:"unit,omitempty"`
}

// Macros holds the per-serving macro breakdown.
type Macros struct {
	Calories float64 `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fat      float64 `bson:"fat" json:"fat"`
}

// Recipe is a saved nutrition recipe, tagged with the conversation it came from
// when AI-generated.
type Recipe struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ClientID        string             `bson:"clientId" json:"clientId"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Ingredients     []Ingredient       `bson:"ingredients" json:"ingredients"`
	Instructions    []string           `bson:"instructions" json:"instructions"`
	PrepTimeMinutes int                `bson:"prepTimeMinutes,omitempty" json:"prepTimeMinutes,omitempty"`
	CookTimeMinutes int                `bson:"cookTimeMinutes,omitempty" json:"cookTimeMinutes,omitempty"`
	Servings        int                `bson:"servings,omitempty" json:"servings,omitempty"`
	Macros          Macros             `bson:"macros" json:"macros"`
	Tags            []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Saved           bool               `bson:"saved" json:"saved"`
	ConversationID  string             `bson:"conversationId,omitempty" json:"conversationId,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
