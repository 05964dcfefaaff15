package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fitflow/coach-app/internal/coach"
	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/metrics"
	"fitflow/coach-app/internal/turnlock"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachHandler exposes the chat turn and the approval protocol.
type CoachHandler struct {
	turns    *coach.TurnService
	staging  *coach.StagingEngine
	executor *coach.Executor
	history  ConversationReader
}

// ConversationReader is the slice of the message store the handler needs for
// history reads.
type ConversationReader interface {
	GetByConversation(ctx context.Context, ownerID primitive.ObjectID, conversationID string) ([]domain.ChatMessage, error)
}

// NewCoachHandler creates a new CoachHandler.
func NewCoachHandler(turns *coach.TurnService, staging *coach.StagingEngine, executor *coach.Executor, history ConversationReader) *CoachHandler {
	return &CoachHandler{turns: turns, staging: staging, executor: executor, history: history}
}

// --- DTOs ---

// SendMessageRequest is the user's chat input for one turn.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageResponse is the wire shape of a chat message.
type MessageResponse struct {
	ID             string                  `json:"id"`
	ConversationID string                  `json:"conversationId"`
	Role           domain.MessageRole      `json:"role"`
	Content        string                  `json:"content"`
	Status         domain.MessageStatus    `json:"status"`
	Approval       *ApprovalResponse       `json:"approval,omitempty"`
	ToolCalls      []domain.ToolCallRecord `json:"toolCalls,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

// ApprovalResponse is the wire shape of a pending approval.
type ApprovalResponse struct {
	Type    domain.ApprovalType   `json:"type"`
	Payload string                `json:"payload"`
	Status  domain.ApprovalStatus `json:"status"`
}

// MapMessageToResponse converts a domain.ChatMessage to its DTO.
func MapMessageToResponse(msg *domain.ChatMessage) MessageResponse {
	resp := MessageResponse{
		ID:             msg.ID.Hex(),
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		Status:         msg.Status,
		ToolCalls:      msg.ToolCalls,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Approval != nil {
		resp.Approval = &ApprovalResponse{
			Type:    msg.Approval.Type,
			Payload: msg.Approval.Payload,
			Status:  msg.Approval.Status,
		}
	}
	return resp
}

// --- Handler methods ---

// SendMessage runs one chat turn and returns every message it produced.
// POST /api/v1/coach/conversations/:conversationId/messages
func (h *CoachHandler) SendMessage(c *gin.Context) {
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user identity")
		return
	}
	conversationID := c.Param("conversationId")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	messages, err := h.turns.HandleUserMessage(c.Request.Context(), ownerID, conversationID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, turnlock.ErrBusy):
			abortWithError(c, http.StatusConflict, "A reply is already being generated for this conversation")
		case errors.Is(err, coach.ErrMalformedToolArgs), errors.Is(err, coach.ErrUnknownToolName):
			// The turn is already recorded as an error message; the
			// client refetches the conversation to render it.
			abortWithError(c, http.StatusBadGateway, "The coach produced an invalid reply")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to process message")
		}
		return
	}

	responses := make([]MessageResponse, len(messages))
	for i := range messages {
		responses[i] = MapMessageToResponse(&messages[i])
	}
	c.JSON(http.StatusOK, gin.H{"messages": responses})
}

// GetConversation returns a conversation's messages in order.
// GET /api/v1/coach/conversations/:conversationId/messages
func (h *CoachHandler) GetConversation(c *gin.Context) {
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user identity")
		return
	}

	messages, err := h.history.GetByConversation(c.Request.Context(), ownerID, c.Param("conversationId"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	responses := make([]MessageResponse, len(messages))
	for i := range messages {
		responses[i] = MapMessageToResponse(&messages[i])
	}
	c.JSON(http.StatusOK, gin.H{"messages": responses})
}

// ApproveMessage flips a message's pending approval to approved.
// POST /api/v1/coach/messages/:messageId/approve
func (h *CoachHandler) ApproveMessage(c *gin.Context) {
	h.transition(c, "approved", h.staging.Approve)
}

// RejectMessage flips a message's pending approval to rejected.
// POST /api/v1/coach/messages/:messageId/reject
func (h *CoachHandler) RejectMessage(c *gin.Context) {
	h.transition(c, "rejected", h.staging.Reject)
}

func (h *CoachHandler) transition(c *gin.Context, outcome string, fn func(ctx context.Context, messageID, actor primitive.ObjectID) error) {
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user identity")
		return
	}
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid message ID")
		return
	}

	if err := fn(c.Request.Context(), messageID, ownerID); err != nil {
		if errors.Is(err, coach.ErrNoPendingApproval) {
			abortWithError(c, http.StatusConflict, "No pending approval on this message")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to record decision")
		return
	}

	metrics.ApprovalDecisions.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// ExecuteMessage materializes an approved payload. Idempotent: the client may
// retry after a dropped response without duplicating entities.
// POST /api/v1/coach/messages/:messageId/execute
func (h *CoachHandler) ExecuteMessage(c *gin.Context) {
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user identity")
		return
	}
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid message ID")
		return
	}

	if err := h.executor.Execute(c.Request.Context(), messageID, ownerID); err != nil {
		switch {
		case errors.Is(err, coach.ErrNotApproved):
			abortWithError(c, http.StatusConflict, "Message has no approved action")
		case errors.Is(err, coach.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, "Referenced plan not found")
		case errors.Is(err, coach.ErrDayOutOfRange):
			abortWithError(c, http.StatusUnprocessableEntity, "Plan day outside plan range")
		default:
			abortWithError(c, http.StatusUnprocessableEntity, "Failed to apply action: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "executed"})
}
