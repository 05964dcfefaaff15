package coach

import (
	"context"
	"errors"
	"fmt"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrUnknownToolName fails the turn when the model invokes a tool outside
	// the fixed set. Unknown names are never silently coerced to another type.
	ErrUnknownToolName = errors.New("unknown tool name")

	// ErrNoPendingApproval covers every invalid transition: no approval on the
	// message, an already-terminal approval, or a message owned by someone
	// else. Terminal states are final; re-approving never silently succeeds.
	ErrNoPendingApproval = errors.New("no pending approval")
)

// toolApprovalTypes is the fixed tool-name to approval-type lookup.
var toolApprovalTypes = map[string]domain.ApprovalType{
	"create_workout_template": domain.ApprovalCreateTemplate,
	"create_workout_plan":     domain.ApprovalCreatePlan,
	"update_workout_plan":     domain.ApprovalUpdatePlan,
	"create_recipe":           domain.ApprovalCreateRecipe,
}

// ToolNames lists the tool names the staging engine accepts, in the order
// they are advertised to the model.
func ToolNames() []string {
	return []string{
		"create_workout_template",
		"create_workout_plan",
		"update_workout_plan",
		"create_recipe",
	}
}

// StagingEngine converts finalized tool calls into pending approvals and owns
// the two user-initiated status transitions. It performs no materialization:
// approving only flips status, so recording the decision and applying it can
// fail and be retried independently.
type StagingEngine struct {
	messages repository.MessageRepository
}

// NewStagingEngine creates a staging engine over the given message store.
func NewStagingEngine(messages repository.MessageRepository) *StagingEngine {
	return &StagingEngine{messages: messages}
}

// Stage maps a finalized tool call to a typed pending approval wrapping the
// raw arguments as the opaque payload.
func (s *StagingEngine) Stage(call FinalToolCall) (*domain.PendingApproval, error) {
	approvalType, ok := toolApprovalTypes[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolName, call.Name)
	}
	return &domain.PendingApproval{
		Type:    approvalType,
		Payload: call.Arguments,
		Status:  domain.ApprovalPending,
	}, nil
}

// Approve flips a message's approval from pending to approved. The store
// transition checks ownership and pending status in one filtered update, so a
// double-tap race resolves to exactly one success.
func (s *StagingEngine) Approve(ctx context.Context, messageID, actor primitive.ObjectID) error {
	return s.transition(ctx, messageID, actor, domain.ApprovalApproved)
}

// Reject flips a message's approval from pending to rejected. Terminal; no
// further action follows a rejection.
func (s *StagingEngine) Reject(ctx context.Context, messageID, actor primitive.ObjectID) error {
	return s.transition(ctx, messageID, actor, domain.ApprovalRejected)
}

func (s *StagingEngine) transition(ctx context.Context, messageID, actor primitive.ObjectID, to domain.ApprovalStatus) error {
	err := s.messages.TransitionApproval(ctx, messageID, actor, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoPendingApproval
		}
		return err
	}
	return nil
}
