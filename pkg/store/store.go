package store

import (
	"context"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

// Stats summarizes one conversation.
type Stats struct {
	MessageCount      int
	UserMessages      int
	AssistantMessages int
	Oldest            time.Time
	Newest            time.Time
}

// Store is the conversation persistence interface. Implementations are
// fallible and ordered only within one conversation.
type Store interface {
	// SaveUserMessage appends a user message to its conversation.
	SaveUserMessage(ctx context.Context, msg schema.ChatMessage) error

	// CreateAssistantMessage appends an assistant message to its
	// conversation.
	CreateAssistantMessage(ctx context.Context, msg schema.ChatMessage) error

	// RecentMessages returns up to limit messages from the conversation,
	// oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]schema.ChatMessage, error)

	// Stats returns summary counts for the conversation.
	Stats(ctx context.Context, conversationID string) (Stats, error)

	// PruneOldConversations drops all but the keep most recently active
	// conversations.
	PruneOldConversations(ctx context.Context, keep int) error

	// Clear removes every message in the conversation.
	Clear(ctx context.Context, conversationID string) error
}
