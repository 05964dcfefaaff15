package storage

import (
	"context"
	"time"

	"fitflow/coach-app/internal/domain"
)

// TurnAudit is the per-turn record archived for later inspection: the exact
// compiled prompt, the final reply text, and the raw tool calls as received.
type TurnAudit struct {
	OwnerID        string                  `json:"ownerId"`
	ConversationID string                  `json:"conversationId"`
	MessageID      string                  `json:"messageId"`
	Prompt         string                  `json:"prompt"`
	Content        string                  `json:"content"`
	ToolCalls      []domain.ToolCallRecord `json:"toolCalls,omitempty"`
	RecordedAt     time.Time               `json:"recordedAt"`
}

// AuditArchive persists turn audits. Archiving is best effort: a failed write
// never fails the turn that produced it.
type AuditArchive interface {
	ArchiveTurn(ctx context.Context, audit TurnAudit) error
}

// noopArchive is used when no archive backend is configured.
type noopArchive struct{}

// NewNoopArchive returns an AuditArchive that discards everything.
func NewNoopArchive() AuditArchive {
	return noopArchive{}
}

func (noopArchive) ArchiveTurn(context.Context, TurnAudit) error { return nil }
