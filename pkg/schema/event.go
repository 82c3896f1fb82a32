package schema

// EventKind discriminates stream events.
type EventKind string

const (
	EventTextDelta      EventKind = "text_delta"
	EventFunctionCall   EventKind = "function_call"
	EventStructuredData EventKind = "structured_data"
	EventUsage          EventKind = "usage"
	EventError          EventKind = "error"
	EventDone           EventKind = "done"
)

// StreamEvent is one unit of backend output. The populated payload field
// depends on Kind; all other fields are zero.
type StreamEvent struct {
	Kind           EventKind
	Text           string
	FunctionCall   *FunctionCall
	StructuredData []byte
	Tokens         int
	Err            error
}

// TextDelta creates a text fragment event.
func TextDelta(text string) StreamEvent {
	return StreamEvent{Kind: EventTextDelta, Text: text}
}

// FunctionCallEvent creates a function invocation event.
func FunctionCallEvent(call FunctionCall) StreamEvent {
	return StreamEvent{Kind: EventFunctionCall, FunctionCall: &call}
}

// StructuredDataEvent creates a schema-constrained payload event.
func StructuredDataEvent(data []byte) StreamEvent {
	return StreamEvent{Kind: EventStructuredData, StructuredData: data}
}

// UsageEvent creates a token usage event.
func UsageEvent(tokens int) StreamEvent {
	return StreamEvent{Kind: EventUsage, Tokens: tokens}
}

// ErrorEvent creates a terminal error event.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}

// Done creates the terminal completion event.
func Done() StreamEvent {
	return StreamEvent{Kind: EventDone}
}
