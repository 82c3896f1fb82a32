package funcexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/peakform/coachflow/pkg/backend"
	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

// Direct-path function names.
const (
	FuncParseNutrition = "parse_nutrition"
	FuncExplainConcept = "explain_concept"
)

const explainSystemPrompt = `You are a knowledgeable fitness coach. Explain the requested concept
clearly and practically in 2-4 short paragraphs. No headers, no bullet
lists, no disclaimers.`

func (e *Executor) executeDirect(ctx context.Context, call schema.FunctionCall, settings config.Settings) (schema.FunctionExecutionResult, error) {
	started := time.Now()

	var (
		result schema.FunctionExecutionResult
		err    error
	)
	switch call.Name {
	case FuncParseNutrition:
		result, err = e.directNutrition(ctx, call, settings)
	case FuncExplainConcept:
		result, err = e.directExplain(ctx, call)
	default:
		err = fmt.Errorf("function %q is not on the direct path", call.Name)
	}
	if err != nil {
		return schema.FunctionExecutionResult{}, err
	}

	result.ExecutionTime = time.Since(started)
	result.FunctionName = call.Name
	return result, nil
}

func (e *Executor) directNutrition(ctx context.Context, call schema.FunctionCall, settings config.Settings) (schema.FunctionExecutionResult, error) {
	food := argString(call.Arguments, "description")
	if food == "" {
		food = argString(call.Arguments, "text")
	}
	if food == "" {
		return schema.FunctionExecutionResult{}, fmt.Errorf("missing food description")
	}

	req := schema.ChatRequest{
		SystemPrompt: nutritionSystemPrompt,
		Messages: []schema.ChatMessage{
			{Role: schema.RoleUser, Content: "Parse this food: " + food},
		},
		Temperature:    0.1,
		MaxTokens:      800,
		ResponseFormat: schema.ResponseFormatJSON,
	}
	completion, err := backend.Complete(ctx, e.backend, req, e.retry)
	if err != nil {
		return schema.FunctionExecutionResult{}, fmt.Errorf("nutrition call failed: %w", err)
	}

	entry, err := ParseNutrition(completion.Text)
	if err != nil {
		return schema.FunctionExecutionResult{}, err
	}
	if entry.ConfidenceScore() < settings.NutritionConfidenceThreshold {
		return schema.FunctionExecutionResult{}, fmt.Errorf("nutrition confidence %q below threshold", entry.Confidence)
	}

	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Logged %s: %d cal, %dg protein, %dg carbs, %dg fat.",
			entry.Name, entry.Calories, entry.Protein, entry.Carbs, entry.Fat),
		Data: entry.Data(),
	}, nil
}

func (e *Executor) directExplain(ctx context.Context, call schema.FunctionCall) (schema.FunctionExecutionResult, error) {
	topic := argString(call.Arguments, "topic")
	if topic == "" {
		topic = argString(call.Arguments, "question")
	}
	if topic == "" {
		return schema.FunctionExecutionResult{}, fmt.Errorf("missing topic")
	}

	req := schema.ChatRequest{
		SystemPrompt: explainSystemPrompt,
		Messages: []schema.ChatMessage{
			{Role: schema.RoleUser, Content: topic},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	}
	completion, err := backend.Complete(ctx, e.backend, req, e.retry)
	if err != nil {
		return schema.FunctionExecutionResult{}, fmt.Errorf("explain call failed: %w", err)
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return schema.FunctionExecutionResult{}, fmt.Errorf("empty response from model")
	}

	return schema.FunctionExecutionResult{
		Success: true,
		Message: text,
	}, nil
}

func argString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argInt(args map[string]any, key string, def, lo, hi int) int {
	if args == nil {
		return def
	}
	var v int
	switch n := args[key].(type) {
	case float64:
		v = int(n)
	case int:
		v = n
	default:
		return def
	}
	if v < lo || v > hi {
		return def
	}
	return v
}
