package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

// Memory is an in-process conversation store.
type Memory struct {
	mu           sync.RWMutex
	messages     map[string][]schema.ChatMessage
	lastActivity map[string]time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		messages:     make(map[string][]schema.ChatMessage),
		lastActivity: make(map[string]time.Time),
	}
}

// SaveUserMessage appends a user message to its conversation.
func (s *Memory) SaveUserMessage(_ context.Context, msg schema.ChatMessage) error {
	return s.append(msg)
}

// CreateAssistantMessage appends an assistant message to its conversation.
func (s *Memory) CreateAssistantMessage(_ context.Context, msg schema.ChatMessage) error {
	return s.append(msg)
}

func (s *Memory) append(msg schema.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	s.lastActivity[msg.ConversationID] = time.Now().UTC()
	return nil
}

// RecentMessages returns up to limit messages, oldest first.
func (s *Memory) RecentMessages(_ context.Context, conversationID string, limit int) ([]schema.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]schema.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Stats returns summary counts for the conversation.
func (s *Memory) Stats(_ context.Context, conversationID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, msg := range s.messages[conversationID] {
		stats.MessageCount++
		switch msg.Role {
		case schema.RoleUser:
			stats.UserMessages++
		case schema.RoleAssistant:
			stats.AssistantMessages++
		}
		if stats.Oldest.IsZero() || msg.Timestamp.Before(stats.Oldest) {
			stats.Oldest = msg.Timestamp
		}
		if msg.Timestamp.After(stats.Newest) {
			stats.Newest = msg.Timestamp
		}
	}
	return stats, nil
}

// PruneOldConversations drops all but the keep most recently active
// conversations.
func (s *Memory) PruneOldConversations(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(s.messages) <= keep {
		return nil
	}

	ids := make([]string, 0, len(s.lastActivity))
	for id := range s.lastActivity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.lastActivity[ids[i]].After(s.lastActivity[ids[j]])
	})

	for _, id := range ids[keep:] {
		delete(s.messages, id)
		delete(s.lastActivity, id)
	}
	return nil
}

// Clear removes every message in the conversation.
func (s *Memory) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, conversationID)
	delete(s.lastActivity, conversationID)
	return nil
}
