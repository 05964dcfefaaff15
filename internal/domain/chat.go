package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRole type for chat participants.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageStatus tracks the lifecycle of an assistant turn.
// Streaming is never a terminal state: an aborted turn ends at Error.
type MessageStatus string

const (
	MessageStreaming MessageStatus = "streaming"
	MessageComplete  MessageStatus = "complete"
	MessageError     MessageStatus = "error"
)

// ApprovalType is the fixed set of actions the coach may propose.
type ApprovalType string

const (
	ApprovalCreateTemplate ApprovalType = "create_template"
	ApprovalCreatePlan     ApprovalType = "create_plan"
	ApprovalUpdatePlan     ApprovalType = "update_plan"
	ApprovalCreateRecipe   ApprovalType = "create_recipe"
)

// ApprovalStatus type for the approval lifecycle.
// Approved and Rejected are terminal; no further transition is valid.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PendingApproval is a staged, user-gated action proposed by the model.
// Type and Payload are set exactly once at creation; only Status changes.
// Payload stays an opaque JSON string at the storage boundary and is
// validated against its typed shape at execute time.
type PendingApproval struct {
	Type    ApprovalType   `bson:"type" json:"type"`
	Payload string         `bson:"payload" json:"payload"`
	Status  ApprovalStatus `bson:"status" json:"status"`
}

// ToolCallRecord preserves a raw model tool invocation for audit,
// even after the approval it produced has been executed.
type ToolCallRecord struct {
	CallID    string `bson:"callId" json:"callId"`
	Name      string `bson:"name" json:"name"`
	Arguments string `bson:"arguments" json:"arguments"`
}

// ChatMessage is one message in a coach conversation. Assistant messages may
// carry raw tool-call records and at most one PendingApproval.
type ChatMessage struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID        primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ConversationID string             `bson:"conversationId" json:"conversationId"`
	Role           MessageRole        `bson:"role" json:"role"`
	Content        string             `bson:"content" json:"content"`
	Status         MessageStatus      `bson:"status" json:"status"`
	ToolCalls      []ToolCallRecord   `bson:"toolCalls,omitempty" json:"toolCalls,omitempty"`
	Approval       *PendingApproval   `bson:"approval,omitempty" json:"approval,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
