package funcexec

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/peakform/coachflow/pkg/backend"
	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

// MetricsSink receives one routing record per execution attempt.
type MetricsSink interface {
	Record(m schema.RoutingMetrics)
}

// directFunctions is the fixed allow-list for the fast direct path. These
// high-frequency operations call the model once with a narrow prompt
// instead of going through the general dispatcher.
var directFunctions = map[string]bool{
	FuncParseNutrition: true,
	FuncExplainConcept: true,
}

// Executor routes function calls between the direct path and the general
// dispatcher, with fallback from direct to dispatcher on failure.
type Executor struct {
	backend    backend.Client
	dispatcher Dispatcher
	metrics    MetricsSink
	logger     zerolog.Logger
	retry      backend.RetryPolicy
}

// NewExecutor creates an executor.
func NewExecutor(client backend.Client, dispatcher Dispatcher, sink MetricsSink, logger zerolog.Logger) *Executor {
	return &Executor{
		backend:    client,
		dispatcher: dispatcher,
		metrics:    sink,
		logger:     logger,
		retry:      backend.DefaultRetryPolicy(),
	}
}

// Execute runs one function call under the given strategy. A failed
// direct-path call falls back to the dispatcher when the strategy allows
// it; the retry runs under a fresh strategy with fallback disabled so a
// fallback can never loop. Every attempt records one metrics entry.
func (e *Executor) Execute(ctx context.Context, call schema.FunctionCall, strategy schema.RoutingStrategy, execCtx Context, settings config.Settings) (schema.FunctionExecutionResult, error) {
	if directFunctions[call.Name] {
		result, err := e.executeDirect(ctx, call, settings)
		e.record(schema.RouteDirectAI, result, err, false)
		if err == nil {
			return result, nil
		}

		if !strategy.FallbackEnabled {
			return schema.FunctionExecutionResult{}, fmt.Errorf("direct execution of %s failed: %w", call.Name, err)
		}

		e.logger.Warn().
			Str("function", call.Name).
			Err(err).
			Msg("direct path failed, falling back to dispatcher")

		retryStrategy := strategy.Fallback(schema.RouteFunctionCalling, "direct path failed")
		result, err = e.executeDispatcher(ctx, call, execCtx)
		e.record(retryStrategy.Route, result, err, true)
		if err != nil {
			return schema.FunctionExecutionResult{}, fmt.Errorf("fallback execution of %s failed: %w", call.Name, err)
		}
		return result, nil
	}

	result, err := e.executeDispatcher(ctx, call, execCtx)
	e.record(strategy.Route, result, err, false)
	if err != nil {
		return schema.FunctionExecutionResult{}, fmt.Errorf("execution of %s failed: %w", call.Name, err)
	}
	return result, nil
}

func (e *Executor) executeDispatcher(ctx context.Context, call schema.FunctionCall, execCtx Context) (schema.FunctionExecutionResult, error) {
	started := time.Now()
	result, err := e.dispatcher.Execute(ctx, call, execCtx)
	if err != nil {
		return schema.FunctionExecutionResult{}, err
	}
	result.ExecutionTime = time.Since(started)
	result.FunctionName = call.Name
	return result, nil
}

func (e *Executor) record(route schema.Route, result schema.FunctionExecutionResult, err error, fallbackUsed bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(schema.RoutingMetrics{
		Route:         route,
		ExecutionTime: result.ExecutionTime,
		Success:       err == nil && result.Success,
		FallbackUsed:  fallbackUsed,
		RecordedAt:    time.Now().UTC(),
	})
}
