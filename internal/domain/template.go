package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseSlot is one per-exercise configuration row inside a template.
// It references a shared ExerciseDefinition and carries slot-local overrides.
type ExerciseSlot struct {
	Order             int                `bson:"order" json:"order"`
	ExerciseID        primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	ExerciseClientID  string             `bson:"exerciseClientId" json:"exerciseClientId"`
	RestTimeSeconds   int                `bson:"restTimeSeconds" json:"restTimeSeconds"`
	SetsCount         int                `bson:"setsCount" json:"setsCount"`
	SuggestedReps     *int               `bson:"suggestedReps,omitempty" json:"suggestedReps,omitempty"`
	SuggestedWeight   *float64           `bson:"suggestedWeight,omitempty" json:"suggestedWeight,omitempty"`
	SuggestedTime     *int               `bson:"suggestedTime,omitempty" json:"suggestedTime,omitempty"`
	SuggestedDistance *float64           `bson:"suggestedDistance,omitempty" json:"suggestedDistance,omitempty"`
}

// WorkoutTemplate is a reusable workout with an ordered list of exercise slots.
// Slots are embedded: they have no identity outside their template.
type WorkoutTemplate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ClientID  string             `bson:"clientId" json:"clientId"`
	Name      string             `bson:"name" json:"name"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Exercises []ExerciseSlot     `bson:"exercises" json:"exercises"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
