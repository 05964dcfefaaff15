package coach

import (
	"context"
	"log"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/metrics"
	"fitflow/coach-app/internal/repository"
	"fitflow/coach-app/internal/storage"
	"fitflow/coach-app/internal/turnlock"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generic user-facing text for any turn that dies mid-stream. Transport and
// parse failures all surface as this single error bubble.
const streamErrorApology = "Sorry, something went wrong while I was responding. Please try again."

// ModelStreamer opens a streaming completion against the language model.
// The system prompt carries the compiled context; history is the prior
// conversation in order.
type ModelStreamer interface {
	StreamChat(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (ChunkStream, error)
}

// TurnService runs one chat turn end to end: snapshot, prompt, model stream,
// accumulation, approval staging. Everything up to and including staging only
// reads data or proposes writes; durable domain writes happen only in the
// Executor after an explicit user approval.
type TurnService struct {
	messages repository.MessageRepository
	builder  *ContextBuilder
	staging  *StagingEngine
	model    ModelStreamer
	locker   turnlock.Locker
	archive  storage.AuditArchive
}

// NewTurnService wires a turn service from its collaborators.
func NewTurnService(
	messages repository.MessageRepository,
	builder *ContextBuilder,
	staging *StagingEngine,
	model ModelStreamer,
	locker turnlock.Locker,
	archive storage.AuditArchive,
) *TurnService {
	return &TurnService{
		messages: messages,
		builder:  builder,
		staging:  staging,
		model:    model,
		locker:   locker,
		archive:  archive,
	}
}

// HandleUserMessage persists the user's message, runs the model turn, and
// returns every message the turn produced (user message, main assistant
// message, and one satellite message per extra tool call).
//
// Whatever happens, the assistant message ends in a terminal state: complete
// on success, error on transport failure, cancellation, malformed arguments
// or an unknown tool name. It is never left at streaming.
func (t *TurnService) HandleUserMessage(ctx context.Context, owner primitive.ObjectID, conversationID, text string) ([]domain.ChatMessage, error) {
	release, err := t.locker.Acquire(ctx, owner.Hex()+"/"+conversationID)
	if err != nil {
		return nil, err
	}
	defer release()

	userMsg := &domain.ChatMessage{
		OwnerID:        owner,
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        text,
		Status:         domain.MessageComplete,
	}
	if _, err := t.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	snap, err := t.builder.Build(ctx, owner)
	if err != nil {
		return nil, err
	}
	prompt := CompilePrompt(snap)

	history, err := t.messages.GetByConversation(ctx, owner, conversationID)
	if err != nil {
		return nil, err
	}

	assistantMsg := &domain.ChatMessage{
		OwnerID:        owner,
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Status:         domain.MessageStreaming,
	}
	assistantID, err := t.messages.Create(ctx, assistantMsg)
	if err != nil {
		return nil, err
	}

	metrics.TurnsStarted.Inc()

	stream, err := t.model.StreamChat(ctx, prompt, history)
	if err != nil {
		t.failTurn(ctx, assistantID)
		return nil, err
	}

	result, err := NewAccumulator(t.messages).Run(ctx, stream, assistantID)
	if err != nil {
		t.failTurn(ctx, assistantID)
		return nil, err
	}

	produced, err := t.finishTurn(ctx, owner, conversationID, assistantID, result)
	if err != nil {
		t.failTurn(ctx, assistantID)
		return nil, err
	}

	t.archiveTurn(ctx, owner, conversationID, assistantID, prompt, result)
	metrics.TurnsCompleted.Inc()

	out := []domain.ChatMessage{*userMsg}
	return append(out, produced...), nil
}

// finishTurn stages the finalized tool calls and writes the turn's terminal
// messages: the first call's approval attaches to the main message along with
// the turn's content; every later call spawns its own empty-content message.
// The relative order of the calls is preserved.
func (t *TurnService) finishTurn(ctx context.Context, owner primitive.ObjectID, conversationID string, assistantID primitive.ObjectID, result *TurnResult) ([]domain.ChatMessage, error) {
	approvals := make([]*domain.PendingApproval, 0, len(result.Calls))
	for _, call := range result.Calls {
		approval, err := t.staging.Stage(call)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
		metrics.ApprovalsStaged.WithLabelValues(string(approval.Type)).Inc()
	}

	var firstApproval *domain.PendingApproval
	var firstRecords []domain.ToolCallRecord
	if len(result.Calls) > 0 {
		firstApproval = approvals[0]
		firstRecords = []domain.ToolCallRecord{toolCallRecord(result.Calls[0])}
	}
	if err := t.messages.Finalize(ctx, assistantID, result.Content, domain.MessageComplete, firstRecords, firstApproval); err != nil {
		return nil, err
	}

	mainMsg, err := t.messages.GetByID(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	produced := []domain.ChatMessage{*mainMsg}

	for i := 1; i < len(result.Calls); i++ {
		satellite := &domain.ChatMessage{
			OwnerID:        owner,
			ConversationID: conversationID,
			Role:           domain.RoleAssistant,
			Content:        "",
			Status:         domain.MessageComplete,
			ToolCalls:      []domain.ToolCallRecord{toolCallRecord(result.Calls[i])},
			Approval:       approvals[i],
		}
		if _, err := t.messages.Create(ctx, satellite); err != nil {
			return nil, err
		}
		produced = append(produced, *satellite)
	}
	return produced, nil
}

// failTurn forces the assistant message to the terminal error state. It runs
// detached from the turn's context: cancellation is exactly when this write
// must still happen, or the UI shows a permanently typing bubble.
func (t *TurnService) failTurn(ctx context.Context, assistantID primitive.ObjectID) {
	metrics.TurnsErrored.Inc()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := t.messages.SetContent(writeCtx, assistantID, streamErrorApology, domain.MessageError); err != nil {
		log.Printf("ERROR: Failed to mark message %s as errored: %v", assistantID.Hex(), err)
	}
}

func (t *TurnService) archiveTurn(ctx context.Context, owner primitive.ObjectID, conversationID string, assistantID primitive.ObjectID, prompt string, result *TurnResult) {
	records := make([]domain.ToolCallRecord, 0, len(result.Calls))
	for _, call := range result.Calls {
		records = append(records, toolCallRecord(call))
	}
	audit := storage.TurnAudit{
		OwnerID:        owner.Hex(),
		ConversationID: conversationID,
		MessageID:      assistantID.Hex(),
		Prompt:         prompt,
		Content:        result.Content,
		ToolCalls:      records,
		RecordedAt:     time.Now().UTC(),
	}
	if err := t.archive.ArchiveTurn(ctx, audit); err != nil {
		log.Printf("WARN: Failed to archive turn %s: %v", assistantID.Hex(), err)
	}
}

func toolCallRecord(call FinalToolCall) domain.ToolCallRecord {
	return domain.ToolCallRecord{
		CallID:    call.CallID,
		Name:      call.Name,
		Arguments: call.Arguments,
	}
}
