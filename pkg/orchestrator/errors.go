package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peakform/coachflow/pkg/backend"
)

// Kind is the error taxonomy for the orchestration pipeline. Execution
// failures are converted to a kind at the orchestrator boundary and
// resolved to a short, non-technical user-facing message.
type Kind string

const (
	KindNoActiveConversation Kind = "no_active_conversation"
	KindNothingToRegenerate  Kind = "nothing_to_regenerate"
	KindBackendUnavailable   Kind = "backend_unavailable"
	KindStreamingTimeout     Kind = "streaming_timeout"
	KindFunctionExecution    Kind = "function_execution_failed"
	KindContextAssembly      Kind = "context_assembly_failed"
	KindInvalidProfile       Kind = "invalid_profile"
	KindParsing              Kind = "parsing_failed"
	KindValidation           Kind = "validation_failed"
	KindEmptyResponse        Kind = "empty_response"
	KindMalformedPayload     Kind = "malformed_payload"
)

// Error tags an underlying failure with its taxonomy kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap tags err with kind, preserving an existing tag.
func wrap(kind Kind, err error) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// kindOf resolves err to its taxonomy kind.
func kindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindStreamingTimeout
	}
	var backendErr *backend.BackendError
	if errors.As(err, &backendErr) {
		return KindBackendUnavailable
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "malformed"):
		return KindMalformedPayload
	case strings.Contains(msg, "out of range"), strings.Contains(msg, "below threshold"):
		return KindValidation
	case strings.Contains(msg, "no JSON object"), strings.Contains(msg, "unterminated"):
		return KindParsing
	case strings.Contains(msg, "empty response"):
		return KindEmptyResponse
	case strings.Contains(msg, "stream"):
		return KindBackendUnavailable
	}
	return KindFunctionExecution
}

// userMessage returns the short, non-technical reply persisted for a
// failure. Raw error strings never reach the user.
func userMessage(kind Kind) string {
	switch kind {
	case KindNoActiveConversation:
		return "There's no conversation yet. Say hi to get started!"
	case KindNothingToRegenerate:
		return "There's nothing to regenerate yet."
	case KindBackendUnavailable:
		return "I'm having trouble reaching my coaching brain right now. Give it another try in a moment."
	case KindStreamingTimeout:
		return "That took longer than it should. Please try again."
	case KindContextAssembly:
		return "I couldn't pull up your recent data. Please try again."
	case KindInvalidProfile:
		return "Something looks off with your profile. Check your settings and try again."
	case KindParsing, KindMalformedPayload:
		return "I didn't quite catch that. Could you rephrase it?"
	case KindValidation:
		return "Those numbers don't look right to me. Mind double-checking?"
	case KindEmptyResponse:
		return "I came up blank there. Try asking in a different way."
	default:
		return "Something went wrong on my end. Please try again."
	}
}
