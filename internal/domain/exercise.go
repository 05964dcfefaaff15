package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeasurementType describes how performance is recorded for an exercise.
type MeasurementType string

const (
	MeasureRepsWeight   MeasurementType = "reps_weight"
	MeasureRepsTime     MeasurementType = "reps_time"
	MeasureTimeOnly     MeasurementType = "time_only"
	MeasureTimeDistance MeasurementType = "time_distance"
	MeasureRepsOnly     MeasurementType = "reps_only"
)

// ValidMeasurementType reports whether t is one of the five fixed variants.
func ValidMeasurementType(t MeasurementType) bool {
	switch t {
	case MeasureRepsWeight, MeasureRepsTime, MeasureTimeOnly, MeasureTimeDistance, MeasureRepsOnly:
		return true
	}
	return false
}

// ExerciseDefinition is one row in a user's exercise library.
// Identity is the (owner, name) pair; NameKey holds the lowercased name so the
// uniqueness check is case-insensitive. ClientID is the stable client-generated
// key used for idempotent creation.
type ExerciseDefinition struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ClientID  string             `bson:"clientId" json:"clientId"`
	Name      string             `bson:"name" json:"name"`
	NameKey   string             `bson:"nameKey" json:"-"`
	Type      MeasurementType    `bson:"measurementType" json:"measurementType"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseNameKey normalizes an exercise name for (owner, name) identity.
func ExerciseNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
