package mongo

import (
	"context"
	"errors"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messageCollectionName = "chat_messages"

// mongoMessageRepository implements repository.MessageRepository
type mongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new chat-message repository backed by MongoDB.
func NewMongoMessageRepository(db *mongo.Database) repository.MessageRepository {
	return &mongoMessageRepository{
		collection: db.Collection(messageCollectionName),
	}
}

// Create inserts a new chat message.
func (r *mongoMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) (primitive.ObjectID, error) {
	if msg.OwnerID == primitive.NilObjectID || msg.ConversationID == "" {
		return primitive.NilObjectID, errors.New("owner ID and conversation ID are required")
	}

	msg.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a message by its ID.
func (r *mongoMessageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// GetByConversation retrieves a conversation's messages in creation order.
func (r *mongoMessageRepository) GetByConversation(ctx context.Context, ownerID primitive.ObjectID, conversationID string) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	filter := bson.M{"ownerId": ownerID, "conversationId": conversationID}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SetContent writes the full accumulated content buffer and status. Each call
// carries the whole buffer, never a diff, so a stale flush arriving late
// cannot corrupt the message beyond being overwritten by the next full write.
func (r *mongoMessageRepository) SetContent(ctx context.Context, id primitive.ObjectID, content string, status domain.MessageStatus) error {
	update := bson.M{
		"$set": bson.M{
			"content":   content,
			"status":    status,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Finalize writes the terminal state of a streamed message: final content,
// status, raw tool-call records and at most one pending approval. The approval
// type and payload are written here exactly once; later updates only flip its
// status via TransitionApproval.
func (r *mongoMessageRepository) Finalize(ctx context.Context, id primitive.ObjectID, content string, status domain.MessageStatus, toolCalls []domain.ToolCallRecord, approval *domain.PendingApproval) error {
	set := bson.M{
		"content":   content,
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	if len(toolCalls) > 0 {
		set["toolCalls"] = toolCalls
	}
	if approval != nil {
		set["approval"] = approval
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// TransitionApproval flips a pending approval to a terminal status. The filter
// requires ownership and a still-pending approval, so a double-approve race or
// a transition on an already-terminal record matches nothing and fails with
// ErrNotFound rather than silently succeeding.
func (r *mongoMessageRepository) TransitionApproval(ctx context.Context, id, ownerID primitive.ObjectID, to domain.ApprovalStatus) error {
	filter := bson.M{
		"_id":             id,
		"ownerId":         ownerID,
		"approval.status": domain.ApprovalPending,
	}
	update := bson.M{
		"$set": bson.M{
			"approval.status": to,
			"updatedAt":       time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMessageIndexes creates necessary indexes for the messages collection.
func EnsureMessageIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "ownerId", Value: 1},
				{Key: "conversationId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
