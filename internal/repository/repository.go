package repository

import (
	"context"
	"time"

	"fitflow/coach-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ExerciseRepository manages the per-user exercise library.
// GetOrCreate is the dedup path: identity is (owner, normalized name), and the
// returned definition is the surviving row whether or not an insert happened.
type ExerciseRepository interface {
	GetOrCreate(ctx context.Context, def *domain.ExerciseDefinition) (*domain.ExerciseDefinition, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseDefinition, error)
	GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.ExerciseDefinition, error)
}

// TemplateRepository manages workout templates.
// CreateIfAbsent is keyed by (owner, clientId): inserting an already-present
// clientId is a no-op that returns the existing row.
type TemplateRepository interface {
	CreateIfAbsent(ctx context.Context, tpl *domain.WorkoutTemplate) (*domain.WorkoutTemplate, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error)
	GetRecentByOwner(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]domain.WorkoutTemplate, error)
}

// PlanMetadataPatch carries the optional plan fields of an update; nil means
// "leave unchanged".
type PlanMetadataPatch struct {
	Name        *string
	Description *string
}

// PlanRepository manages workout plans.
type PlanRepository interface {
	CreateIfAbsent(ctx context.Context, plan *domain.WorkoutPlan) (*domain.WorkoutPlan, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error)
	GetByClientID(ctx context.Context, ownerID primitive.ObjectID, clientID string) (*domain.WorkoutPlan, error)
	GetActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.WorkoutPlan, error)
	PatchMetadata(ctx context.Context, ownerID, planID primitive.ObjectID, patch PlanMetadataPatch) error
}

// PlanDayPatch carries the optional fields of a day update; nil means
// "leave unchanged".
type PlanDayPatch struct {
	TemplateID *primitive.ObjectID
	Label      *string
	Notes      *string
	Status     *domain.PlanDayStatus
}

// PlanDayRepository manages the (week, dayOfWeek) grid of a plan.
type PlanDayRepository interface {
	CreateIfAbsent(ctx context.Context, day *domain.PlanDay) (*domain.PlanDay, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanDay, error)
	FindByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int) (*domain.PlanDay, error)
	PatchByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int, patch PlanDayPatch) error
	DeleteByCell(ctx context.Context, planID primitive.ObjectID, week, dayOfWeek int) error
}

// RecipeRepository manages saved recipes.
type RecipeRepository interface {
	CreateIfAbsent(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, error)
	GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Recipe, error)
}

// WorkoutLogRepository reads completed workout sessions. Logs are written by
// the tracking surface of the app; this subsystem never mutates them.
type WorkoutLogRepository interface {
	GetSince(ctx context.Context, ownerID primitive.ObjectID, since time.Time, limit int) ([]domain.WorkoutLog, error)
	GetRecent(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]domain.WorkoutLog, error)
	CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
	GetDistinctDates(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]time.Time, error)
}

// MessageRepository manages chat messages and the pending approvals embedded
// in them. The approval transition is a single filtered update so the
// pending-status check and the flip are one atomic operation.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChatMessage, error)
	GetByConversation(ctx context.Context, ownerID primitive.ObjectID, conversationID string) ([]domain.ChatMessage, error)
	SetContent(ctx context.Context, id primitive.ObjectID, content string, status domain.MessageStatus) error
	Finalize(ctx context.Context, id primitive.ObjectID, content string, status domain.MessageStatus, toolCalls []domain.ToolCallRecord, approval *domain.PendingApproval) error
	TransitionApproval(ctx context.Context, id, ownerID primitive.ObjectID, to domain.ApprovalStatus) error
}

// SettingsRepository reads user unit preferences.
type SettingsRepository interface {
	GetByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.UserSettings, error)
}
