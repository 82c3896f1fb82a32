package schema

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType is the classifier's verdict on a piece of user input.
type MessageType string

const (
	MessageTypeCommand      MessageType = "command"
	MessageTypeConversation MessageType = "conversation"
)

// ChatMessage is one turn in a conversation. Immutable once persisted;
// classification and function-call metadata are annotated at creation time.
type ChatMessage struct {
	ID             string        `json:"id"`
	Role           Role          `json:"role"`
	Content        string        `json:"content"`
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	FunctionCall   *FunctionCall `json:"function_call,omitempty"`
	Classification MessageType   `json:"classification,omitempty"`
	IsError        bool          `json:"is_error,omitempty"`
}

// NewMessage creates a message with a fresh ID and UTC timestamp.
func NewMessage(conversationID string, role Role, content string) ChatMessage {
	return ChatMessage{
		ID:             uuid.NewString(),
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		ConversationID: conversationID,
	}
}

// FunctionCall is a structured tool invocation emitted by the model.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// FunctionExecutionResult is the outcome of executing one function call.
type FunctionExecutionResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time_ms"`
	FunctionName  string         `json:"function_name"`
}

// Route is a processing strategy for one user turn.
type Route string

const (
	RouteDirectAI        Route = "direct_ai"
	RouteFunctionCalling Route = "function_calling"
	RouteHybrid          Route = "hybrid"
)

// ValidRoute reports whether s names a known route.
func ValidRoute(s string) bool {
	switch Route(s) {
	case RouteDirectAI, RouteFunctionCalling, RouteHybrid:
		return true
	}
	return false
}

// RoutingStrategy is the immutable routing decision for one user turn.
type RoutingStrategy struct {
	Route           Route     `json:"route"`
	Reason          string    `json:"reason"`
	FallbackEnabled bool      `json:"fallback_enabled"`
	DecidedAt       time.Time `json:"decided_at"`
}

// NewStrategy creates a strategy stamped with the decision time.
func NewStrategy(route Route, reason string, fallbackEnabled bool) RoutingStrategy {
	return RoutingStrategy{
		Route:           route,
		Reason:          reason,
		FallbackEnabled: fallbackEnabled,
		DecidedAt:       time.Now().UTC(),
	}
}

// Fallback derives the strategy for a retry on an alternate route. The
// original is never mutated, and the derived strategy always has fallback
// disabled so a retry can never loop.
func (s RoutingStrategy) Fallback(route Route, reason string) RoutingStrategy {
	return RoutingStrategy{
		Route:           route,
		Reason:          reason,
		FallbackEnabled: false,
		DecidedAt:       time.Now().UTC(),
	}
}

// RoutingMetrics is one per-request routing outcome record. Append-only;
// consumed by the metrics recorder for logging and alerting.
type RoutingMetrics struct {
	Route         Route         `json:"route"`
	ExecutionTime time.Duration `json:"execution_time_ms"`
	Success       bool          `json:"success"`
	TokenUsage    int           `json:"token_usage,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
	FallbackUsed  bool          `json:"fallback_used"`
	RecordedAt    time.Time     `json:"recorded_at"`
}

// ResponseFormat constrains the shape of a model response.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json_object"
)

// ChatRequest is one request to the streaming backend.
type ChatRequest struct {
	SystemPrompt   string
	Messages       []ChatMessage
	Functions      []FunctionDefinition
	Temperature    float64
	MaxTokens      int
	User           string
	ResponseFormat ResponseFormat
}

// FunctionDefinition describes a callable function to the model. Parameters
// use a narrow JSON-schema subset that each backend converts to its native
// tool format.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParameterSchema
	Required    []string
}

// ParameterSchema describes a single function parameter.
type ParameterSchema struct {
	Type        string
	Description string
	Enum        []string
}
