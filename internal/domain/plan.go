package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus type for the plan lifecycle.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanArchived  PlanStatus = "archived"
)

// PlanDayStatus type for a single cell in the plan grid.
type PlanDayStatus string

const (
	DayPending   PlanDayStatus = "pending"
	DayCompleted PlanDayStatus = "completed"
	DaySkipped   PlanDayStatus = "skipped"
	DayRest      PlanDayStatus = "rest"
)

// WorkoutPlan is a multi-week schedule of template assignments.
type WorkoutPlan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID       primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ClientID      string             `bson:"clientId" json:"clientId"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Goal          string             `bson:"goal,omitempty" json:"goal,omitempty"`
	DurationWeeks int                `bson:"durationWeeks" json:"durationWeeks"`
	StartDate     time.Time          `bson:"startDate" json:"startDate"`
	Status        PlanStatus         `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PlanDay is one (week, dayOfWeek) cell of a plan's grid.
// Week is 1-based; DayOfWeek uses the fixed 0=Sunday..6=Saturday convention.
// A day without a template reference is a rest day.
type PlanDay struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID    primitive.ObjectID  `bson:"ownerId" json:"ownerId"`
	ClientID   string              `bson:"clientId" json:"clientId"`
	PlanID     primitive.ObjectID  `bson:"planId" json:"planId"`
	Week       int                 `bson:"week" json:"week"`
	DayOfWeek  int                 `bson:"dayOfWeek" json:"dayOfWeek"`
	TemplateID *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"`
	Label      string              `bson:"label,omitempty" json:"label,omitempty"`
	Notes      string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status     PlanDayStatus       `bson:"status" json:"status"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// DayNames maps the wire convention (0=Sunday..6=Saturday) to display names.
var DayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
