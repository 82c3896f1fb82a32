package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/peakform/coachflow/pkg/schema"
)

// RetryPolicy defines retry and backoff behavior for non-streaming use of
// a backend.
type RetryPolicy struct {
	MaxRetries    int
	BaseBackoffMs int
	MaxBackoffMs  int
}

// DefaultRetryPolicy returns the standard transient-retry settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseBackoffMs: 200, MaxBackoffMs: 2000}
}

// Completion is the joined result of one fully consumed stream.
type Completion struct {
	Text         string
	FunctionCall *schema.FunctionCall
	Tokens       int
}

// Complete issues the request and joins the whole stream into a single
// completion. Transient failures are retried with exponential backoff;
// each retry is a fresh call because streams are not restartable.
func Complete(ctx context.Context, client Client, req schema.ChatRequest, policy RetryPolicy) (*Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		completion, err := completeOnce(ctx, client, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == policy.MaxRetries {
			break
		}
		backoff := computeBackoff(policy.BaseBackoffMs, policy.MaxBackoffMs, attempt)
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func completeOnce(ctx context.Context, client Client, req schema.ChatRequest) (*Completion, error) {
	events, err := client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	completion := &Completion{}
	for ev := range events {
		switch ev.Kind {
		case schema.EventTextDelta:
			sb.WriteString(ev.Text)
		case schema.EventStructuredData:
			sb.Reset()
			sb.Write(ev.StructuredData)
		case schema.EventFunctionCall:
			completion.FunctionCall = ev.FunctionCall
		case schema.EventUsage:
			completion.Tokens = ev.Tokens
		case schema.EventError:
			return nil, ev.Err
		case schema.EventDone:
			completion.Text = sb.String()
			return completion, nil
		}
	}
	return nil, fmt.Errorf("stream ended without terminal event")
}

func computeBackoff(baseMs, maxMs, attempt int) time.Duration {
	backoff := time.Duration(baseMs) * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= time.Duration(maxMs)*time.Millisecond {
			return time.Duration(maxMs) * time.Millisecond
		}
	}
	if backoff > time.Duration(maxMs)*time.Millisecond {
		return time.Duration(maxMs) * time.Millisecond
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
