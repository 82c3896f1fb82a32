package classify

import (
	"regexp"
	"strings"

	"github.com/peakform/coachflow/pkg/schema"
)

// History window sizes per message type. Commands need almost no context;
// open conversation pulls a larger window.
const (
	CommandHistoryWindow      = 5
	ConversationHistoryWindow = 20
)

// imperativeVerbs are leading words that mark short instructions.
var imperativeVerbs = []string{
	"log", "add", "show", "open", "set", "start", "stop", "track",
	"record", "delete", "remove", "update", "clear", "go",
}

// domainKeywords are nutrition and fitness terms that, in a short message,
// signal a command-like request rather than open conversation.
var domainKeywords = []string{
	"calories", "protein", "carbs", "fat", "macros", "water",
	"workout", "exercise", "sets", "reps", "weight", "steps",
	"breakfast", "lunch", "dinner", "snack", "meal",
}

var (
	numericUnitRe = regexp.MustCompile(`\b\d+(\.\d+)?\s*(g|kg|lb|lbs|oz|ml|l|cal|cals|calories|kcal|min|mins|miles?|km)\b`)
	shortAckRe    = regexp.MustCompile(`^(ok|okay|yes|no|yep|nope|sure|thanks|thank you|got it|done|nice|great)[.!]?$`)
)

// Result carries the classifier verdict and how much conversation history
// later stages should use.
type Result struct {
	Type          schema.MessageType
	HistoryWindow int
}

// Classify tags input as command-like or conversation-like. Deterministic
// and side-effect free; the same text always yields the same result.
func Classify(text string) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if isCommand(normalized) {
		return Result{Type: schema.MessageTypeCommand, HistoryWindow: CommandHistoryWindow}
	}
	return Result{Type: schema.MessageTypeConversation, HistoryWindow: ConversationHistoryWindow}
}

func isCommand(normalized string) bool {
	if len(normalized) < 20 {
		return true
	}

	first, _, _ := strings.Cut(normalized, " ")
	for _, verb := range imperativeVerbs {
		if first == verb {
			return true
		}
	}

	if len(normalized) < 50 {
		for _, keyword := range domainKeywords {
			if strings.Contains(normalized, keyword) {
				return true
			}
		}
	}

	if numericUnitRe.MatchString(normalized) {
		return true
	}
	return shortAckRe.MatchString(normalized)
}
