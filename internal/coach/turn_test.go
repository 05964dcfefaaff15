package coach

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/storage"
	"fitflow/coach-app/internal/turnlock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeModel hands out scripted streams, one per turn.
type fakeModel struct {
	mu      sync.Mutex
	streams []*memStream
	openErr error

	lastPrompt  string
	lastHistory []domain.ChatMessage
}

func (m *fakeModel) StreamChat(_ context.Context, systemPrompt string, history []domain.ChatMessage) (ChunkStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.lastPrompt = systemPrompt
	m.lastHistory = history
	stream := m.streams[0]
	if len(m.streams) > 1 {
		m.streams = m.streams[1:]
	}
	return stream, nil
}

// captureArchive records every archived turn.
type captureArchive struct {
	mu     sync.Mutex
	audits []storage.TurnAudit
}

func (a *captureArchive) ArchiveTurn(_ context.Context, audit storage.TurnAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audits = append(a.audits, audit)
	return nil
}

type turnFixture struct {
	messages *fakeMessages
	model    *fakeModel
	archive  *captureArchive
	service  *TurnService
	owner    primitive.ObjectID
}

func newTurnFixture(streams ...*memStream) *turnFixture {
	messages := newFakeMessages()
	builder := NewContextBuilder(&fakeExercises{}, &fakeTemplates{}, &fakePlans{}, &fakePlanDays{}, &fakeLogs{}, &fakeSettings{})
	model := &fakeModel{streams: streams}
	archive := &captureArchive{}
	return &turnFixture{
		messages: messages,
		model:    model,
		archive:  archive,
		service:  NewTurnService(messages, builder, NewStagingEngine(messages), model, turnlock.NewLocalLocker(), archive),
		owner:    primitive.NewObjectID(),
	}
}

func TestTurnService_PlainTextTurn(t *testing.T) {
	f := newTurnFixture(&memStream{chunks: []Chunk{
		{Content: "Rest days matter. "},
		{Content: "Take two per week."},
	}})

	produced, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-1", "How many rest days?")
	require.NoError(t, err)
	require.Len(t, produced, 2)

	assert.Equal(t, domain.RoleUser, produced[0].Role)
	assert.Equal(t, "How many rest days?", produced[0].Content)

	assistant := produced[1]
	assert.Equal(t, domain.RoleAssistant, assistant.Role)
	assert.Equal(t, "Rest days matter. Take two per week.", assistant.Content)
	assert.Equal(t, domain.MessageComplete, assistant.Status)
	assert.Nil(t, assistant.Approval)

	// The compiled context went out as the system prompt.
	assert.Contains(t, f.model.lastPrompt, "## Rules")
	// The user message was already persisted when history was read.
	require.NotEmpty(t, f.model.lastHistory)
	assert.Equal(t, "How many rest days?", f.model.lastHistory[len(f.model.lastHistory)-1].Content)
}

func TestTurnService_SingleToolCallAttachesToMainMessage(t *testing.T) {
	f := newTurnFixture(&memStream{chunks: []Chunk{
		{Content: "Here's a recipe for you."},
		{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "create_recipe", Arguments: `{"title":"Oats"}`}}},
	}})

	produced, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-1", "Suggest a breakfast")
	require.NoError(t, err)
	require.Len(t, produced, 2)

	assistant := produced[1]
	assert.Equal(t, "Here's a recipe for you.", assistant.Content)
	require.NotNil(t, assistant.Approval)
	assert.Equal(t, domain.ApprovalCreateRecipe, assistant.Approval.Type)
	assert.Equal(t, domain.ApprovalPending, assistant.Approval.Status)
	assert.Equal(t, `{"title":"Oats"}`, assistant.Approval.Payload)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].CallID)
}

func TestTurnService_ExtraCallsSpawnSatellites(t *testing.T) {
	f := newTurnFixture(&memStream{chunks: []Chunk{
		{Content: "Template first, then a recipe."},
		{ToolCalls: []ToolCallDelta{
			{Index: 0, ID: "call_a", Name: "create_workout_template", Arguments: `{"name":"Push Day"}`},
			{Index: 1, ID: "call_b", Name: "create_recipe", Arguments: `{"title":"Oats"}`},
		}},
	}})

	produced, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-1", "Set me up")
	require.NoError(t, err)
	require.Len(t, produced, 3)

	main := produced[1]
	assert.Equal(t, "Template first, then a recipe.", main.Content)
	require.NotNil(t, main.Approval)
	assert.Equal(t, domain.ApprovalCreateTemplate, main.Approval.Type)

	satellite := produced[2]
	assert.Empty(t, satellite.Content)
	assert.Equal(t, domain.MessageComplete, satellite.Status)
	require.NotNil(t, satellite.Approval)
	assert.Equal(t, domain.ApprovalCreateRecipe, satellite.Approval.Type)
	require.Len(t, satellite.ToolCalls, 1)
	assert.Equal(t, "call_b", satellite.ToolCalls[0].CallID)
}

func TestTurnService_TransportErrorLeavesTerminalMessage(t *testing.T) {
	f := newTurnFixture(&memStream{
		chunks: []Chunk{{Content: "partial"}},
		err:    errors.New("connection reset"),
	})

	_, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-1", "hello")
	require.Error(t, err)

	msgs, err := f.messages.GetByConversation(context.Background(), f.owner, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assistant := msgs[1]
	assert.Equal(t, domain.MessageError, assistant.Status, "assistant message must not stay at streaming")
	assert.Equal(t, streamErrorApology, assistant.Content)
	assert.Empty(t, f.archive.audits, "failed turns are not archived")
}

func TestTurnService_UnknownToolNameFailsTurn(t *testing.T) {
	f := newTurnFixture(&memStream{chunks: []Chunk{
		{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "drop_tables", Arguments: `{}`}}},
	}})

	_, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-1", "hello")
	assert.ErrorIs(t, err, ErrUnknownToolName)

	msgs, getErr := f.messages.GetByConversation(context.Background(), f.owner, "conv-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.MessageError, msgs[1].Status)
}

func TestTurnService_ArchivesCompletedTurn(t *testing.T) {
	f := newTurnFixture(&memStream{chunks: []Chunk{
		{Content: "Done."},
		{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "create_recipe", Arguments: `{"title":"Oats"}`}}},
	}})

	_, err := f.service.HandleUserMessage(context.Background(), f.owner, "conv-9", "go")
	require.NoError(t, err)

	require.Len(t, f.archive.audits, 1)
	audit := f.archive.audits[0]
	assert.Equal(t, f.owner.Hex(), audit.OwnerID)
	assert.Equal(t, "conv-9", audit.ConversationID)
	assert.Equal(t, "Done.", audit.Content)
	require.Len(t, audit.ToolCalls, 1)
	assert.Equal(t, "create_recipe", audit.ToolCalls[0].Name)
	assert.NotEmpty(t, audit.Prompt)
}

func TestTurnService_SecondTurnWaitsForLock(t *testing.T) {
	// Hold the conversation's lock directly; the turn must refuse to start.
	locker := turnlock.NewLocalLocker()
	owner := primitive.NewObjectID()
	release, err := locker.Acquire(context.Background(), owner.Hex()+"/conv-1")
	require.NoError(t, err)

	messages := newFakeMessages()
	builder := NewContextBuilder(&fakeExercises{}, &fakeTemplates{}, &fakePlans{}, &fakePlanDays{}, &fakeLogs{}, &fakeSettings{})
	service := NewTurnService(messages, builder, NewStagingEngine(messages), &fakeModel{streams: []*memStream{{}}}, locker, storage.NewNoopArchive())

	_, err = service.HandleUserMessage(context.Background(), owner, "conv-1", "hi")
	assert.ErrorIs(t, err, turnlock.ErrBusy)

	msgs, getErr := messages.GetByConversation(context.Background(), owner, "conv-1")
	require.NoError(t, getErr)
	assert.Empty(t, msgs, "nothing is persisted while the conversation is busy")

	// A different conversation is unaffected.
	release()
	_, err = service.HandleUserMessage(context.Background(), owner, "conv-1", "hi again")
	assert.NoError(t, err)
}
