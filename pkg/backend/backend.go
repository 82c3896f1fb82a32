package backend

import (
	"context"

	"github.com/peakform/coachflow/pkg/schema"
)

// Client is the single streaming backend interface. Stream issues one
// request and returns a finite event channel that terminates with a done
// or error event. A stream is not restartable; retries issue a new call.
type Client interface {
	// Name returns the backend's identifier.
	Name() string

	// Stream sends the request and returns the event channel. The channel
	// is closed after the terminal event. Cancelling ctx ends the stream
	// with an error event.
	Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error)
}

// emit delivers an event unless the context is done. It returns false when
// the consumer has gone away and the producer should stop.
func emit(ctx context.Context, ch chan<- schema.StreamEvent, ev schema.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
