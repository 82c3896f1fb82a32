package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

func TestMemoryAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for i := 0; i < 5; i++ {
		msg := schema.NewMessage("c1", schema.RoleUser, fmt.Sprintf("message %d", i))
		if err := s.SaveUserMessage(ctx, msg); err != nil {
			t.Fatalf("SaveUserMessage: %v", err)
		}
	}

	msgs, err := s.RecentMessages(ctx, "c1", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	// Oldest first, trimmed from the front.
	if msgs[0].Content != "message 2" || msgs[2].Content != "message 4" {
		t.Fatalf("window = [%q .. %q], want [message 2 .. message 4]", msgs[0].Content, msgs[2].Content)
	}
}

func TestMemoryRecentZeroLimitReturnsAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for i := 0; i < 4; i++ {
		_ = s.SaveUserMessage(ctx, schema.NewMessage("c1", schema.RoleUser, "m"))
	}

	msgs, err := s.RecentMessages(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
}

func TestMemoryRecentIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.SaveUserMessage(ctx, schema.NewMessage("c1", schema.RoleUser, "original"))

	msgs, _ := s.RecentMessages(ctx, "c1", 10)
	msgs[0].Content = "mutated"

	again, _ := s.RecentMessages(ctx, "c1", 10)
	if again[0].Content != "original" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.SaveUserMessage(ctx, schema.NewMessage("c1", schema.RoleUser, "hi"))
	_ = s.CreateAssistantMessage(ctx, schema.NewMessage("c1", schema.RoleAssistant, "hello"))
	_ = s.SaveUserMessage(ctx, schema.NewMessage("c1", schema.RoleUser, "more"))

	stats, err := s.Stats(ctx, "c1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MessageCount != 3 || stats.UserMessages != 2 || stats.AssistantMessages != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Oldest.After(stats.Newest) {
		t.Fatalf("oldest %v after newest %v", stats.Oldest, stats.Newest)
	}
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.SaveUserMessage(ctx, schema.NewMessage("c1", schema.RoleUser, "hi"))
	_ = s.SaveUserMessage(ctx, schema.NewMessage("c2", schema.RoleUser, "other"))

	if err := s.Clear(ctx, "c1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	msgs, _ := s.RecentMessages(ctx, "c1", 10)
	if len(msgs) != 0 {
		t.Fatalf("cleared conversation has %d messages", len(msgs))
	}
	msgs, _ = s.RecentMessages(ctx, "c2", 10)
	if len(msgs) != 1 {
		t.Fatal("clear removed an unrelated conversation")
	}
}

func TestMemoryPruneKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		_ = s.SaveUserMessage(ctx, schema.NewMessage(id, schema.RoleUser, "hi"))
		// Pin distinct activity times so the prune order is unambiguous.
		s.lastActivity[id] = base.Add(time.Duration(i) * time.Minute)
	}

	if err := s.PruneOldConversations(ctx, 2); err != nil {
		t.Fatalf("PruneOldConversations: %v", err)
	}

	if msgs, _ := s.RecentMessages(ctx, "old", 10); len(msgs) != 0 {
		t.Fatal("oldest conversation survived pruning")
	}
	for _, id := range []string{"mid", "new"} {
		if msgs, _ := s.RecentMessages(ctx, id, 10); len(msgs) != 1 {
			t.Fatalf("conversation %s was pruned", id)
		}
	}
}
