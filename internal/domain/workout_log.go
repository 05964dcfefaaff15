package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LogSet is one completed (or attempted) set within a logged workout.
// Only the numeric fields relevant to the exercise's measurement type are set.
type LogSet struct {
	Reps           *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	WeightKg       *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	TimeSeconds    *int     `bson:"timeSeconds,omitempty" json:"timeSeconds,omitempty"`
	DistanceMeters *float64 `bson:"distanceMeters,omitempty" json:"distanceMeters,omitempty"`
	Completed      bool     `bson:"completed" json:"completed"`
}

// LogEntry groups the sets performed for one exercise within a session.
type LogEntry struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Sets       []LogSet           `bson:"sets" json:"sets"`
}

// WorkoutLog is one completed workout session. Logs are written by the
// workout-tracking surface of the app; this subsystem only reads them.
type WorkoutLog struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Date            time.Time          `bson:"date" json:"date"`
	Label           string             `bson:"label,omitempty" json:"label,omitempty"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Entries         []LogEntry         `bson:"entries" json:"entries"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
