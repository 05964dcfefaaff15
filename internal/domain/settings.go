package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserSettings holds unit preferences used when rendering the coach context.
type UserSettings struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	WeightUnit   string             `bson:"weightUnit" json:"weightUnit"`     // "kg" or "lb"
	DistanceUnit string             `bson:"distanceUnit" json:"distanceUnit"` // "km" or "mi"
}

// DefaultSettings is used when a user has no settings document yet.
func DefaultSettings(owner primitive.ObjectID) *UserSettings {
	return &UserSettings{OwnerID: owner, WeightUnit: "kg", DistanceUnit: "km"}
}
