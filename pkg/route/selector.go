package route

import (
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

// UserContext carries the best-effort signals the selector may use to
// shape a recommendation. Zero values are valid.
type UserContext struct {
	HasHealthData bool
	ActiveGoal    string
}

// Decide picks the routing strategy for one user turn. It never fails:
// ambiguous input degrades to FunctionCalling, the safe default. The
// settings snapshot is taken by the caller and used consistently for the
// whole request.
func Decide(userID, input string, history []schema.ChatMessage, userCtx UserContext, settings config.Settings) schema.RoutingStrategy {
	if !settings.HybridEnabled {
		return schema.NewStrategy(schema.RouteFunctionCalling, "control group", false)
	}

	if settings.ForcedRoute != "" {
		return schema.NewStrategy(settings.ForcedRoute, "forced route", settings.FallbackEnabled)
	}

	if !inExperimentGroup(userID, settings.HybridPercentage) {
		return schema.NewStrategy(schema.RouteFunctionCalling, "outside experiment group", false)
	}

	route, reason := analyze(input, history, userCtx)
	return schema.NewStrategy(route, reason, settings.FallbackEnabled)
}

// inExperimentGroup computes the stable A/B assignment. A given user always
// maps to the same bucket for a fixed percentage; there is no randomness at
// decision time.
func inExperimentGroup(userID string, percentage float64) bool {
	h := fnv.New32a()
	h.Write([]byte(userID))
	bucket := h.Sum32() % 100
	return float64(bucket) < percentage*100
}

var questionOpeners = []string{
	"what is", "what are", "how does", "how do", "why does", "why is",
	"explain", "tell me about",
}

var fitnessTerms = []string{
	"protein", "carbs", "calories", "hypertrophy", "overload",
	"deload", "cardio", "strength", "recovery", "muscle", "macro",
	"creatine", "volume", "rep", "set",
}

var foodQuantityRe = regexp.MustCompile(`\b\d+(\.\d+)?\s*(g|oz|cups?|slices?|eggs?|scoops?|servings?)\b`)

var foodWords = []string{
	"ate", "eating", "had", "breakfast", "lunch", "dinner", "snack",
	"chicken", "rice", "eggs", "shake", "bowl", "salad", "sandwich",
}

// analyze recommends a route from the shape of the input and the prior
// conversation.
func analyze(input string, history []schema.ChatMessage, userCtx UserContext) (schema.Route, string) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	nutrition := looksLikeNutrition(normalized)
	educational := looksEducational(normalized)

	switch {
	case nutrition && educational:
		return schema.RouteHybrid, "mixed nutrition and question signals"
	case nutrition:
		return schema.RouteDirectAI, "simple nutrition parsing signal"
	case educational:
		return schema.RouteDirectAI, "educational question"
	}

	// Long input or a conversation already in flight means the model may
	// need tools and full context.
	if len(normalized) > 120 || len(history) > 6 {
		return schema.RouteFunctionCalling, "long-form conversation"
	}

	if len(normalized) < 40 {
		return schema.RouteHybrid, "short ambiguous input"
	}
	return schema.RouteFunctionCalling, "default conversational route"
}

// DirectIntent picks the narrow direct-path operation for input that was
// routed to DirectAI: nutrition-shaped text parses food, anything else is
// treated as an educational question.
func DirectIntent(input string) schema.FunctionCall {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if looksLikeNutrition(normalized) {
		return schema.FunctionCall{
			Name:      "parse_nutrition",
			Arguments: map[string]any{"description": strings.TrimSpace(input)},
		}
	}
	return schema.FunctionCall{
		Name:      "explain_concept",
		Arguments: map[string]any{"topic": strings.TrimSpace(input)},
	}
}

func looksLikeNutrition(normalized string) bool {
	if foodQuantityRe.MatchString(normalized) {
		return true
	}
	hits := 0
	for _, word := range foodWords {
		if containsWord(normalized, word) {
			hits++
		}
	}
	return hits >= 2
}

func looksEducational(normalized string) bool {
	opener := false
	for _, q := range questionOpeners {
		if strings.HasPrefix(normalized, q) {
			opener = true
			break
		}
	}
	if !opener {
		return false
	}
	for _, term := range fitnessTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// containsWord checks for a word-boundary match.
func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	if idx == -1 {
		return false
	}
	if idx > 0 && isWordChar(s[idx-1]) {
		return false
	}
	end := idx + len(word)
	if end < len(s) && isWordChar(s[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
