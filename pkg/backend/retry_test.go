package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

// flakyClient fails with a transient error until failures runs out.
type flakyClient struct {
	failures int32
	inner    Client
}

func (f *flakyClient) Name() string { return "flaky" }

func (f *flakyClient) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, &BackendError{Status: 503, Temporary: true, Err: errors.New("upstream busy")}
	}
	return f.inner.Stream(ctx, req)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseBackoffMs: 1, MaxBackoffMs: 2}
}

func TestCompleteJoinsStream(t *testing.T) {
	client := NewScriptedMock(
		schema.TextDelta("hello "),
		schema.TextDelta("there"),
		schema.UsageEvent(7),
		schema.Done(),
	)

	completion, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Text != "hello there" {
		t.Fatalf("Text = %q", completion.Text)
	}
	if completion.Tokens != 7 {
		t.Fatalf("Tokens = %d, want 7", completion.Tokens)
	}
}

func TestCompleteStructuredDataReplacesText(t *testing.T) {
	client := NewScriptedMock(
		schema.TextDelta("{\"na"),
		schema.StructuredDataEvent([]byte(`{"ok":true}`)),
		schema.Done(),
	)

	completion, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Text != `{"ok":true}` {
		t.Fatalf("Text = %q", completion.Text)
	}
}

func TestCompleteRetriesTransient(t *testing.T) {
	client := &flakyClient{failures: 2, inner: NewScriptedMock(schema.TextDelta("ok"), schema.Done())}

	completion, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy())
	if err != nil {
		t.Fatalf("Complete after retries: %v", err)
	}
	if completion.Text != "ok" {
		t.Fatalf("Text = %q", completion.Text)
	}
}

func TestCompleteGivesUpAfterMaxRetries(t *testing.T) {
	client := &flakyClient{failures: 10, inner: NewMock()}

	_, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy())
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("err = %v, want BackendError", err)
	}
}

func TestCompleteNonTransientFailsImmediately(t *testing.T) {
	calls := 0
	client := clientFunc(func(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
		calls++
		return nil, errors.New("bad request")
	})

	if _, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy()); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on permanent error)", calls)
	}
}

func TestCompleteStreamError(t *testing.T) {
	boom := errors.New("mid-stream failure")
	client := NewScriptedMock(schema.TextDelta("partial"), schema.ErrorEvent(boom))

	_, err := Complete(context.Background(), client, schema.ChatRequest{}, fastPolicy())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the stream error", err)
	}
}

func TestComputeBackoffCaps(t *testing.T) {
	if got := computeBackoff(200, 2000, 0); got != 200*time.Millisecond {
		t.Fatalf("attempt 0 = %v, want 200ms", got)
	}
	if got := computeBackoff(200, 2000, 2); got != 800*time.Millisecond {
		t.Fatalf("attempt 2 = %v, want 800ms", got)
	}
	if got := computeBackoff(200, 2000, 10); got != 2000*time.Millisecond {
		t.Fatalf("attempt 10 = %v, want capped at 2000ms", got)
	}
}

// clientFunc adapts a function to the Client interface.
type clientFunc func(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error)

func (f clientFunc) Name() string { return "func" }

func (f clientFunc) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	return f(ctx, req)
}
