package backend

import (
	"context"
	"strings"

	"github.com/peakform/coachflow/pkg/schema"
)

// Mock returns deterministic streams for local runs and tests.
type Mock struct {
	responses       map[string]string
	defaultResponse string
	script          []schema.StreamEvent
	usageTokens     int
}

// NewMock creates a mock backend with a default response.
func NewMock() *Mock {
	return &Mock{
		responses:       make(map[string]string),
		defaultResponse: "Sounds good. Keep me posted on how training goes.",
		usageTokens:     12,
	}
}

// NewMockWithResponses creates a mock backend with responses keyed by the
// last user message.
func NewMockWithResponses(responses map[string]string, defaultResponse string) *Mock {
	m := NewMock()
	if responses != nil {
		m.responses = responses
	}
	if defaultResponse != "" {
		m.defaultResponse = defaultResponse
	}
	return m
}

// NewScriptedMock creates a mock backend that replays the given events
// verbatim on every call.
func NewScriptedMock(events ...schema.StreamEvent) *Mock {
	return &Mock{script: events}
}

// Name returns the backend identifier.
func (m *Mock) Name() string {
	return "mock"
}

// Stream returns the scripted events, or a word-by-word delta stream of
// the canned response for the last user message.
func (m *Mock) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	ch := make(chan schema.StreamEvent)
	go func() {
		defer close(ch)
		if m.script != nil {
			for _, ev := range m.script {
				if !emit(ctx, ch, ev) {
					return
				}
			}
			return
		}

		response := m.defaultResponse
		if text, ok := m.responses[lastUserMessage(req)]; ok {
			response = text
		}

		words := strings.SplitAfter(response, " ")
		for _, w := range words {
			if w == "" {
				continue
			}
			if !emit(ctx, ch, schema.TextDelta(w)) {
				return
			}
		}
		if m.usageTokens > 0 {
			if !emit(ctx, ch, schema.UsageEvent(m.usageTokens)) {
				return
			}
		}
		emit(ctx, ch, schema.Done())
	}()
	return ch, nil
}

func lastUserMessage(req schema.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == schema.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
