package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"fitflow/coach-app/internal/coach"
	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memMessageStore is a minimal in-memory MessageRepository for handler tests.
type memMessageStore struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*domain.ChatMessage
	order []primitive.ObjectID
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{byID: make(map[primitive.ObjectID]*domain.ChatMessage)}
}

func (s *memMessageStore) Create(_ context.Context, msg *domain.ChatMessage) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	stored := *msg
	s.byID[msg.ID] = &stored
	s.order = append(s.order, msg.ID)
	return msg.ID, nil
}

func (s *memMessageStore) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (s *memMessageStore) GetByConversation(_ context.Context, ownerID primitive.ObjectID, conversationID string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, id := range s.order {
		msg := s.byID[id]
		if msg.OwnerID == ownerID && msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (s *memMessageStore) SetContent(_ context.Context, id primitive.ObjectID, content string, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	msg.Content = content
	msg.Status = status
	return nil
}

func (s *memMessageStore) Finalize(_ context.Context, id primitive.ObjectID, content string, status domain.MessageStatus, toolCalls []domain.ToolCallRecord, approval *domain.PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	msg.Content = content
	msg.Status = status
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}
	if approval != nil {
		msg.Approval = approval
	}
	return nil
}

func (s *memMessageStore) TransitionApproval(_ context.Context, id, ownerID primitive.ObjectID, to domain.ApprovalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok || msg.OwnerID != ownerID || msg.Approval == nil || msg.Approval.Status != domain.ApprovalPending {
		return repository.ErrNotFound
	}
	msg.Approval.Status = to
	return nil
}

type handlerFixture struct {
	store  *memMessageStore
	router *gin.Engine
	owner  primitive.ObjectID
}

func newHandlerFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)
	f := &handlerFixture{
		store: newMemMessageStore(),
		owner: primitive.NewObjectID(),
	}

	handler := NewCoachHandler(nil, coach.NewStagingEngine(f.store), nil, f.store)

	f.router = gin.New()
	// Stand-in for the auth middleware: every request acts as f.owner.
	f.router.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, f.owner.Hex())
	})
	f.router.GET("/coach/conversations/:conversationId/messages", handler.GetConversation)
	f.router.POST("/coach/messages/:messageId/approve", handler.ApproveMessage)
	f.router.POST("/coach/messages/:messageId/reject", handler.RejectMessage)
	return f
}

func (f *handlerFixture) pendingMessage(t *testing.T) primitive.ObjectID {
	t.Helper()
	id, err := f.store.Create(context.Background(), &domain.ChatMessage{
		OwnerID:        f.owner,
		ConversationID: "conv-1",
		Role:           domain.RoleAssistant,
		Content:        "Shall I save this recipe?",
		Status:         domain.MessageComplete,
		Approval: &domain.PendingApproval{
			Type:    domain.ApprovalCreateRecipe,
			Payload: `{"title":"Oats"}`,
			Status:  domain.ApprovalPending,
		},
	})
	require.NoError(t, err)
	return id
}

func TestCoachHandler_GetConversation(t *testing.T) {
	f := newHandlerFixture()
	f.pendingMessage(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/coach/conversations/conv-1/messages", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Shall I save this recipe?")
	assert.Contains(t, w.Body.String(), `"type":"create_recipe"`)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestCoachHandler_GetConversation_DoesNotLeakOtherUsers(t *testing.T) {
	f := newHandlerFixture()
	_, err := f.store.Create(context.Background(), &domain.ChatMessage{
		OwnerID:        primitive.NewObjectID(),
		ConversationID: "conv-1",
		Role:           domain.RoleUser,
		Content:        "someone else's message",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/coach/conversations/conv-1/messages", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "someone else's message")
}

func TestCoachHandler_ApproveMessage(t *testing.T) {
	f := newHandlerFixture()
	msgID := f.pendingMessage(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/coach/messages/"+msgID.Hex()+"/approve", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	stored, err := f.store.GetByID(context.Background(), msgID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, stored.Approval.Status)
}

func TestCoachHandler_RejectThenApproveConflicts(t *testing.T) {
	f := newHandlerFixture()
	msgID := f.pendingMessage(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/coach/messages/"+msgID.Hex()+"/reject", nil)
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/coach/messages/"+msgID.Hex()+"/approve", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCoachHandler_ApproveInvalidMessageID(t *testing.T) {
	f := newHandlerFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/coach/messages/not-an-id/approve", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCoachHandler_ApproveUnknownMessage(t *testing.T) {
	f := newHandlerFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/coach/messages/"+primitive.NewObjectID().Hex()+"/approve", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
