package stream

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

// State is the handler's position in one request's stream lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Listener receives stream callbacks in the exact order events arrived.
// All methods are optional; a nil listener is valid.
type Listener interface {
	// OnDelta is called for every text fragment. first is true for the
	// initial fragment of the stream.
	OnDelta(text string, first bool)

	// OnFunctionCall is called when the model emits a function invocation.
	OnFunctionCall(call schema.FunctionCall)

	// OnUsage is called when token usage is reported.
	OnUsage(tokens int)
}

// Result is the finalized output of one fully consumed stream.
type Result struct {
	FullResponse    string
	FunctionCall    *schema.FunctionCall
	TokenUsage      int
	FirstTokenAfter time.Duration
	Elapsed         time.Duration
}

// Handler is the state machine over one request's event stream. A handler
// serves exactly one Consume call.
type Handler struct {
	state    State
	listener Listener

	accumulator  strings.Builder
	structured   []byte
	functionCall *schema.FunctionCall
	tokens       int

	started    time.Time
	firstDelta time.Duration
	sawDelta   bool
}

// NewHandler creates a handler in the idle state.
func NewHandler(listener Listener) *Handler {
	return &Handler{state: StateIdle, listener: listener}
}

// State returns the handler's current state.
func (h *Handler) State() State {
	return h.state
}

// Consume drains the event stream and returns the finalized result.
// Events are processed strictly in arrival order; deltas are never
// reordered or dropped. Cancelling ctx fails the stream with the
// cancellation cause and no success finalization is delivered.
func (h *Handler) Consume(ctx context.Context, events <-chan schema.StreamEvent) (*Result, error) {
	if h.state != StateIdle {
		return nil, fmt.Errorf("handler already consumed a stream (state=%s)", h.state)
	}
	h.state = StateStreaming
	h.started = time.Now()

	for {
		select {
		case <-ctx.Done():
			h.state = StateFailed
			return nil, fmt.Errorf("stream cancelled: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				// Channel closed without a terminal event; treat as done.
				return h.finalize(), nil
			}
			done, err := h.handle(ev)
			if err != nil {
				h.state = StateFailed
				return nil, err
			}
			if done {
				return h.finalize(), nil
			}
		}
	}
}

func (h *Handler) handle(ev schema.StreamEvent) (bool, error) {
	switch ev.Kind {
	case schema.EventTextDelta:
		first := !h.sawDelta
		if first {
			h.sawDelta = true
			h.firstDelta = time.Since(h.started)
		}
		h.accumulator.WriteString(ev.Text)
		if h.listener != nil {
			h.listener.OnDelta(ev.Text, first)
		}
	case schema.EventFunctionCall:
		// A function call does not terminate the stream; trailing text
		// and usage may still arrive.
		h.functionCall = ev.FunctionCall
		if h.listener != nil && ev.FunctionCall != nil {
			h.listener.OnFunctionCall(*ev.FunctionCall)
		}
	case schema.EventStructuredData:
		h.structured = bytes.Clone(ev.StructuredData)
	case schema.EventUsage:
		h.tokens = ev.Tokens
		if h.listener != nil {
			h.listener.OnUsage(ev.Tokens)
		}
	case schema.EventError:
		err := ev.Err
		if err == nil {
			err = fmt.Errorf("stream reported an unspecified error")
		}
		return false, err
	case schema.EventDone:
		return true, nil
	}
	return false, nil
}

func (h *Handler) finalize() *Result {
	h.state = StateCompleted

	response := h.accumulator.String()
	if h.structured != nil {
		// A structured payload replaces any accumulated prose.
		response = string(h.structured)
	}
	return &Result{
		FullResponse:    response,
		FunctionCall:    h.functionCall,
		TokenUsage:      h.tokens,
		FirstTokenAfter: h.firstDelta,
		Elapsed:         time.Since(h.started),
	}
}
