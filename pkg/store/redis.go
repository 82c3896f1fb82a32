package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peakform/coachflow/pkg/schema"
)

const conversationIndexKey = "coachflow:conversations"

// Redis is a conversation store backed by Redis lists. Each conversation
// is one list of JSON-encoded messages; a sorted set indexes conversations
// by last activity for pruning.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// SaveUserMessage appends a user message to its conversation.
func (s *Redis) SaveUserMessage(ctx context.Context, msg schema.ChatMessage) error {
	return s.append(ctx, msg)
}

// CreateAssistantMessage appends an assistant message to its conversation.
func (s *Redis) CreateAssistantMessage(ctx context.Context, msg schema.ChatMessage) error {
	return s.append(ctx, msg)
}

func (s *Redis) append(ctx context.Context, msg schema.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, messageKey(msg.ConversationID), data)
	pipe.ZAdd(ctx, conversationIndexKey, redis.Z{
		Score:  float64(time.Now().UTC().UnixMilli()),
		Member: msg.ConversationID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, oldest first.
func (s *Redis) RecentMessages(ctx context.Context, conversationID string, limit int) ([]schema.ChatMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, messageKey(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	msgs := make([]schema.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg schema.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Stats returns summary counts for the conversation.
func (s *Redis) Stats(ctx context.Context, conversationID string) (Stats, error) {
	msgs, err := s.RecentMessages(ctx, conversationID, 0)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, msg := range msgs {
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
func (s *Redis) PruneOldConversations(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	stale, err := s.client.ZRange(ctx, conversationIndexKey, 0, int64(-keep-1)).Result()
	if err != nil {
		return fmt.Errorf("failed to list stale conversations: %w", err)
	}
	for _, id := range stale {
		if err := s.Clear(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every message in the conversation.
func (s *Redis) Clear(ctx context.Context, conversationID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, messageKey(conversationID))
	pipe.ZRem(ctx, conversationIndexKey, conversationID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

func messageKey(conversationID string) string {
	return "coachflow:messages:" + conversationID
}
