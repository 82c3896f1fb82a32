package funcexec

import (
	"context"
	"fmt"

	"github.com/peakform/coachflow/pkg/health"
	"github.com/peakform/coachflow/pkg/schema"
)

// DefaultRegistry returns the built-in function set: deep-query tools over
// the user's data plus degraded dispatcher handlers for the direct-path
// functions, so a direct-path fallback always has somewhere to land.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(schema.FunctionDefinition{
		Name:        FuncParseNutrition,
		Description: "Parse a food description into calories and macros and log it.",
		Parameters: map[string]schema.ParameterSchema{
			"description": {Type: "string", Description: "The food to parse, e.g. '4 eggs scrambled with cheese'"},
		},
		Required: []string{"description"},
	}, logFoodFallback)

	r.Register(schema.FunctionDefinition{
		Name:        FuncExplainConcept,
		Description: "Explain a training or nutrition concept. Use for 'what is' and 'how does' questions.",
		Parameters: map[string]schema.ParameterSchema{
			"topic": {Type: "string", Description: "The concept to explain, e.g. 'progressive overload'"},
		},
		Required: []string{"topic"},
	}, explainFallback)

	r.Register(schema.FunctionDefinition{
		Name:        "query_workouts",
		Description: "Query workout history. Use when the user asks about exercises, training volume, or PRs.",
		Parameters: map[string]schema.ParameterSchema{
			"exercise": {Type: "string", Description: "Filter by exercise name"},
			"days":     {Type: "integer", Description: "Number of days to query (1-90, default 14)"},
		},
	}, queryWorkouts)

	r.Register(schema.FunctionDefinition{
		Name:        "query_nutrition",
		Description: "Query nutrition history. Use when the user asks about eating patterns or macro trends.",
		Parameters: map[string]schema.ParameterSchema{
			"days": {Type: "integer", Description: "Number of days to query (1-30, default 7)"},
		},
	}, queryNutrition)

	r.Register(schema.FunctionDefinition{
		Name:        "query_body_comp",
		Description: "Query body composition trends. Use when the user asks about weight or body fat progress.",
		Parameters: map[string]schema.ParameterSchema{
			"days": {Type: "integer", Description: "Number of days to query (30-365, default 90)"},
		},
	}, queryBodyComp)

	r.Register(schema.FunctionDefinition{
		Name:        "query_recovery",
		Description: "Query recovery signals. Use when the user mentions sleep, fatigue, or readiness.",
		Parameters: map[string]schema.ParameterSchema{
			"days": {Type: "integer", Description: "Number of days to query (1-30, default 7)"},
		},
	}, queryRecovery)

	return r
}

func queryWorkouts(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	days := argInt(call.Arguments, "days", 14, 1, 90)
	snapshot := health.Assemble(ctx, execCtx.Health)

	data := map[string]any{
		"days":             days,
		"workouts_this_wk": snapshot.Activity.WorkoutsThisWk,
		"active_calories":  snapshot.Activity.ActiveCalories,
	}
	if exercise := argString(call.Arguments, "exercise"); exercise != "" {
		data["exercise"] = exercise
	}
	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("You've trained %d times this week.", snapshot.Activity.WorkoutsThisWk),
		Data:    data,
	}, nil
}

func queryNutrition(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	days := argInt(call.Arguments, "days", 7, 1, 30)
	snapshot := health.Assemble(ctx, execCtx.Health)

	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Your current targets are %d calories and %dg protein per day.",
			snapshot.Goals.DailyCalories, snapshot.Goals.DailyProtein),
		Data: map[string]any{
			"days":           days,
			"daily_calories": snapshot.Goals.DailyCalories,
			"daily_protein":  snapshot.Goals.DailyProtein,
		},
	}, nil
}

func queryBodyComp(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	days := argInt(call.Arguments, "days", 90, 30, 365)
	snapshot := health.Assemble(ctx, execCtx.Health)

	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Current weight %.1f kg, body fat %.1f%%.",
			snapshot.Body.WeightKg, snapshot.Body.BodyFatPct),
		Data: map[string]any{
			"days":         days,
			"weight_kg":    snapshot.Body.WeightKg,
			"body_fat_pct": snapshot.Body.BodyFatPct,
		},
	}, nil
}

func queryRecovery(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	days := argInt(call.Arguments, "days", 7, 1, 30)
	snapshot := health.Assemble(ctx, execCtx.Health)

	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("You logged %d steps today. Recovery data beyond activity isn't connected yet.",
			snapshot.Activity.Steps),
		Data: map[string]any{
			"days":  days,
			"steps": snapshot.Activity.Steps,
		},
	}, nil
}

// logFoodFallback handles parse_nutrition on the dispatcher path when the
// direct model call is unavailable. The entry is noted without macro
// estimates rather than dropped.
func logFoodFallback(_ context.Context, call schema.FunctionCall, _ Context) (schema.FunctionExecutionResult, error) {
	food := argString(call.Arguments, "description")
	if food == "" {
		food = argString(call.Arguments, "text")
	}
	if food == "" {
		return schema.FunctionExecutionResult{}, fmt.Errorf("missing food description")
	}
	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Noted %q in your food log. I'll fill in the macros once parsing is available again.", food),
		Data:    map[string]any{"description": food, "estimated": false},
	}, nil
}

func explainFallback(_ context.Context, call schema.FunctionCall, _ Context) (schema.FunctionExecutionResult, error) {
	topic := argString(call.Arguments, "topic")
	if topic == "" {
		return schema.FunctionExecutionResult{}, fmt.Errorf("missing topic")
	}
	return schema.FunctionExecutionResult{
		Success: true,
		Message: fmt.Sprintf("I can't pull up a full explanation of %s right now. Ask me again in a moment.", topic),
		Data:    map[string]any{"topic": topic},
	}, nil
}
