package funcexec

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/peakform/coachflow/pkg/backend"
	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

type sinkRecorder struct {
	records []schema.RoutingMetrics
}

func (s *sinkRecorder) Record(m schema.RoutingMetrics) {
	s.records = append(s.records, m)
}

func goodNutritionJSON() []byte {
	return []byte(`{"name":"chicken and rice","calories":450,"protein":30,"carbs":40,"fat":15,"confidence":"high"}`)
}

func nutritionCall() schema.FunctionCall {
	return schema.FunctionCall{
		Name:      FuncParseNutrition,
		Arguments: map[string]any{"description": "chicken and rice"},
	}
}

func newTestExecutor(client backend.Client, dispatcher Dispatcher, sink MetricsSink) *Executor {
	e := NewExecutor(client, dispatcher, sink, zerolog.Nop())
	// Keep retries out of the way so a scripted failure fails once.
	e.retry = backend.RetryPolicy{MaxRetries: 0, BaseBackoffMs: 1, MaxBackoffMs: 1}
	return e
}

func TestExecuteDirectSuccess(t *testing.T) {
	client := backend.NewScriptedMock(
		schema.StructuredDataEvent(goodNutritionJSON()),
		schema.UsageEvent(60),
		schema.Done(),
	)
	sink := &sinkRecorder{}
	e := newTestExecutor(client, NewRegistry(), sink)

	strategy := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", true)
	result, err := e.Execute(context.Background(), nutritionCall(), strategy, Context{}, config.DefaultSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %+v", result)
	}
	if result.FunctionName != FuncParseNutrition {
		t.Fatalf("FunctionName = %q", result.FunctionName)
	}
	if result.Data["calories"] != 450 {
		t.Fatalf("calories = %v, want 450", result.Data["calories"])
	}

	if len(sink.records) != 1 {
		t.Fatalf("records = %d, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Route != schema.RouteDirectAI || !rec.Success || rec.FallbackUsed {
		t.Fatalf("record = %+v", rec)
	}
}

func TestExecuteDirectFailureFallsBack(t *testing.T) {
	client := backend.NewScriptedMock(schema.ErrorEvent(errors.New("model unavailable")))

	registry := NewRegistry()
	registry.Register(schema.FunctionDefinition{Name: FuncParseNutrition}, func(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
		return schema.FunctionExecutionResult{Success: true, Message: "Saved it, I'll fill in the macros later."}, nil
	})

	sink := &sinkRecorder{}
	e := newTestExecutor(client, registry, sink)

	strategy := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", true)
	result, err := e.Execute(context.Background(), nutritionCall(), strategy, Context{}, config.DefaultSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("fallback result not successful: %+v", result)
	}

	// One record per attempt: the failed direct try and the fallback.
	if len(sink.records) != 2 {
		t.Fatalf("records = %d, want exactly 2", len(sink.records))
	}
	first, second := sink.records[0], sink.records[1]
	if first.Route != schema.RouteDirectAI || first.Success || first.FallbackUsed {
		t.Fatalf("first record = %+v", first)
	}
	if second.Route != schema.RouteFunctionCalling || !second.Success || !second.FallbackUsed {
		t.Fatalf("second record = %+v", second)
	}
}

func TestExecuteDirectFailureNoFallback(t *testing.T) {
	client := backend.NewScriptedMock(schema.ErrorEvent(errors.New("model unavailable")))
	sink := &sinkRecorder{}
	e := newTestExecutor(client, NewRegistry(), sink)

	strategy := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", false)
	_, err := e.Execute(context.Background(), nutritionCall(), strategy, Context{}, config.DefaultSettings())
	if err == nil {
		t.Fatal("expected error with fallback disabled")
	}
	if len(sink.records) != 1 {
		t.Fatalf("records = %d, want 1", len(sink.records))
	}
}

func TestExecuteLowConfidenceRejected(t *testing.T) {
	client := backend.NewScriptedMock(
		schema.StructuredDataEvent([]byte(`{"name":"some snacks","calories":300,"protein":5,"carbs":30,"fat":15,"confidence":"low"}`)),
		schema.Done(),
	)
	sink := &sinkRecorder{}
	e := newTestExecutor(client, NewRegistry(), sink)

	strategy := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", false)
	_, err := e.Execute(context.Background(), nutritionCall(), strategy, Context{}, config.DefaultSettings())
	if err == nil {
		t.Fatal("low confidence must be rejected at the default threshold")
	}
}

func TestExecuteMediumConfidencePassesDefaultThreshold(t *testing.T) {
	client := backend.NewScriptedMock(
		schema.StructuredDataEvent([]byte(`{"name":"chicken stir fry","calories":520,"protein":38,"carbs":45,"fat":18,"confidence":"medium"}`)),
		schema.Done(),
	)
	e := newTestExecutor(client, NewRegistry(), &sinkRecorder{})

	strategy := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", false)
	result, err := e.Execute(context.Background(), nutritionCall(), strategy, Context{}, config.DefaultSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
}

func TestExecuteDispatcherPath(t *testing.T) {
	registry := NewRegistry()
	registry.Register(schema.FunctionDefinition{Name: "query_workouts"}, func(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
		return schema.FunctionExecutionResult{Success: true, Message: "3 workouts this week."}, nil
	})

	sink := &sinkRecorder{}
	e := newTestExecutor(backend.NewMock(), registry, sink)

	strategy := schema.NewStrategy(schema.RouteFunctionCalling, "default conversational route", true)
	call := schema.FunctionCall{Name: "query_workouts", Arguments: map[string]any{"time_period": "week"}}
	result, err := e.Execute(context.Background(), call, strategy, Context{}, config.DefaultSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.FunctionName != "query_workouts" {
		t.Fatalf("FunctionName = %q", result.FunctionName)
	}
	if len(sink.records) != 1 || sink.records[0].Route != schema.RouteFunctionCalling {
		t.Fatalf("records = %+v", sink.records)
	}
}

func TestExecuteUnknownFunction(t *testing.T) {
	e := newTestExecutor(backend.NewMock(), NewRegistry(), &sinkRecorder{})

	strategy := schema.NewStrategy(schema.RouteFunctionCalling, "default conversational route", true)
	call := schema.FunctionCall{Name: "summon_pizza"}
	if _, err := e.Execute(context.Background(), call, strategy, Context{}, config.DefaultSettings()); err == nil {
		t.Fatal("expected unknown function to fail")
	}
}

func TestDirectExplain(t *testing.T) {
	client := backend.NewScriptedMock(
		schema.TextDelta("Progressive overload means "),
		schema.TextDelta("gradually increasing training stress."),
		schema.UsageEvent(30),
		schema.Done(),
	)
	e := newTestExecutor(client, NewRegistry(), &sinkRecorder{})

	strategy := schema.NewStrategy(schema.RouteDirectAI, "educational question", false)
	call := schema.FunctionCall{Name: FuncExplainConcept, Arguments: map[string]any{"topic": "progressive overload"}}
	result, err := e.Execute(context.Background(), call, strategy, Context{}, config.DefaultSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Message != "Progressive overload means gradually increasing training stress." {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		registry.Register(schema.FunctionDefinition{Name: name}, func(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
			return schema.FunctionExecutionResult{}, nil
		})
	}

	defs := registry.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions = %d, want 3", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "mid" || defs[2].Name != "zeta" {
		t.Fatalf("definitions out of order: %v", defs)
	}
}
