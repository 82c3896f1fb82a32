package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/peakform/coachflow/pkg/backend"
	"github.com/peakform/coachflow/pkg/classify"
	"github.com/peakform/coachflow/pkg/command"
	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/funcexec"
	"github.com/peakform/coachflow/pkg/health"
	"github.com/peakform/coachflow/pkg/route"
	"github.com/peakform/coachflow/pkg/schema"
	"github.com/peakform/coachflow/pkg/store"
)

// State is the externally observable view of one conversation's engine.
// Readers get a snapshot; nothing outside the engine mutates it.
type State struct {
	IsProcessing    bool
	CurrentResponse string
	StreamingTokens bool
	LastError       string
}

// Engine wires the full pipeline for one conversation: classify, local
// command short-circuit, route, execute, persist, record. All mutation for
// the conversation happens through the engine; multiple conversations run
// independent engines.
type Engine struct {
	conversationID string
	userID         string

	backend  backend.Client
	store    store.Store
	health   health.Provider
	executor *funcexec.Executor
	registry *funcexec.Registry
	config   *config.Store
	metrics  funcexec.MetricsSink
	logger   zerolog.Logger

	processing atomic.Bool

	mu    sync.Mutex
	state State
}

// Options configures an Engine.
type Options struct {
	ConversationID string
	UserID         string
	Backend        backend.Client
	Store          store.Store
	Health         health.Provider
	Registry       *funcexec.Registry
	Config         *config.Store
	Metrics        funcexec.MetricsSink
	Logger         zerolog.Logger
}

// New creates an engine for one conversation.
func New(opts Options) *Engine {
	registry := opts.Registry
	if registry == nil {
		registry = funcexec.DefaultRegistry()
	}
	return &Engine{
		conversationID: opts.ConversationID,
		userID:         opts.UserID,
		backend:        opts.Backend,
		store:          opts.Store,
		health:         opts.Health,
		executor:       funcexec.NewExecutor(opts.Backend, registry, opts.Metrics, opts.Logger),
		registry:       registry,
		config:         opts.Config,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
}

// State returns a snapshot of the observable state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsProcessing reports whether a user turn is in flight.
func (e *Engine) IsProcessing() bool {
	return e.processing.Load()
}

// ProcessUserMessage runs one user turn through the pipeline. A second
// call while a turn is in flight is a logged no-op, not an error and not
// a queue.
func (e *Engine) ProcessUserMessage(ctx context.Context, text string) error {
	if !e.processing.CompareAndSwap(false, true) {
		e.logger.Info().Str("conversation", e.conversationID).Msg("already processing, ignoring message")
		return nil
	}
	defer e.finish()

	e.beginTurn()
	return e.process(ctx, text, true)
}

// RegenerateLastResponse re-runs the pipeline for the most recent user
// message without persisting a new one.
func (e *Engine) RegenerateLastResponse(ctx context.Context) error {
	if !e.processing.CompareAndSwap(false, true) {
		e.logger.Info().Str("conversation", e.conversationID).Msg("already processing, ignoring regenerate")
		return nil
	}
	defer e.finish()

	e.beginTurn()

	history, err := e.store.RecentMessages(ctx, e.conversationID, 0)
	if err != nil {
		return e.fail(ctx, wrap(KindContextAssembly, err))
	}
	if len(history) == 0 {
		return e.fail(ctx, &Error{Kind: KindNoActiveConversation})
	}

	var lastUser *schema.ChatMessage
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == schema.RoleUser {
			lastUser = &history[i]
			break
		}
	}
	if lastUser == nil {
		return e.fail(ctx, &Error{Kind: KindNothingToRegenerate})
	}
	return e.process(ctx, lastUser.Content, false)
}

// ClearConversation drops the conversation's messages and resets the
// observable state.
func (e *Engine) ClearConversation(ctx context.Context) error {
	if err := e.store.Clear(ctx, e.conversationID); err != nil {
		return wrap(KindContextAssembly, err)
	}
	e.mu.Lock()
	e.state = State{}
	e.mu.Unlock()
	return nil
}

// ExecuteFunction runs one function call outside a conversational turn
// and persists its outcome as an assistant message.
func (e *Engine) ExecuteFunction(ctx context.Context, call schema.FunctionCall) (schema.FunctionExecutionResult, error) {
	settings := e.config.Snapshot()
	strategy := schema.NewStrategy(schema.RouteFunctionCalling, "explicit function execution", settings.FallbackEnabled)

	result, err := e.executor.Execute(ctx, call, strategy, e.execContext(), settings)
	if err != nil {
		kind := kindOf(err)
		e.persistAssistant(ctx, userMessage(kind), nil, true)
		return schema.FunctionExecutionResult{}, wrap(KindFunctionExecution, err)
	}
	e.persistAssistant(ctx, result.Message, &call, false)
	return result, nil
}

// process is the shared turn pipeline. persistUser is false on regenerate.
func (e *Engine) process(ctx context.Context, text string, persistUser bool) error {
	classification := classify.Classify(text)

	if persistUser {
		msg := schema.NewMessage(e.conversationID, schema.RoleUser, text)
		msg.Classification = classification.Type
		if err := e.store.SaveUserMessage(ctx, msg); err != nil {
			return e.fail(ctx, wrap(KindContextAssembly, err))
		}
	}

	// Local command short circuit: no model call, canned response.
	if cmd := command.Match(text); !cmd.IsNone() {
		response := command.Respond(cmd)
		if err := e.persistAssistant(ctx, response, nil, false); err != nil {
			return e.fail(ctx, err)
		}
		e.setResponse(response)
		return nil
	}

	settings := e.config.Snapshot()

	history, snapshot, err := e.assembleContext(ctx, classification.HistoryWindow, settings)
	if err != nil {
		return e.fail(ctx, wrap(KindContextAssembly, err))
	}

	userCtx := route.UserContext{HasHealthData: snapshot.HasData, ActiveGoal: snapshot.Goals.Primary}
	strategy := route.Decide(e.userID, text, history, userCtx, settings)
	e.logger.Debug().
		Str("route", string(strategy.Route)).
		Str("reason", strategy.Reason).
		Msg("routing decision")

	var response string
	switch strategy.Route {
	case schema.RouteDirectAI:
		response, err = e.runDirect(ctx, text, strategy, settings)
	default:
		response, err = e.runStreaming(ctx, text, history, snapshot, strategy, settings)
	}
	if err != nil {
		return e.fail(ctx, err)
	}

	e.setResponse(response)
	return nil
}

// runDirect executes the narrow direct path for the turn. Fallback to the
// dispatcher, when enabled, happens inside the executor.
func (e *Engine) runDirect(ctx context.Context, text string, strategy schema.RoutingStrategy, settings config.Settings) (string, error) {
	call := route.DirectIntent(text)
	result, err := e.executor.Execute(ctx, call, strategy, e.execContext(), settings)
	if err != nil {
		return "", err
	}
	if err := e.persistAssistant(ctx, result.Message, &call, false); err != nil {
		return "", err
	}
	return result.Message, nil
}

// runStreaming executes a full conversational turn, detecting and running
// any function call the model emits.
func (e *Engine) runStreaming(ctx context.Context, text string, history []schema.ChatMessage, snapshot health.Snapshot, strategy schema.RoutingStrategy, settings config.Settings) (string, error) {
	req := schema.ChatRequest{
		SystemPrompt: buildSystemPrompt(snapshot),
		Messages:     append(trimHistory(history), schema.ChatMessage{Role: schema.RoleUser, Content: text}),
		Functions:    e.registry.Definitions(),
		Temperature:  0.7,
		MaxTokens:    1024,
		User:         e.userID,
	}

	started := time.Now()
	events, err := e.backend.Stream(ctx, req)
	if err != nil {
		e.recordStream(strategy, 0, time.Since(started), false)
		return "", wrap(KindBackendUnavailable, err)
	}

	e.setStreamingTokens(true)
	defer e.setStreamingTokens(false)

	handler := newStreamBridge(e)
	result, err := handler.Consume(ctx, events)
	if err != nil {
		e.recordStream(strategy, 0, time.Since(started), false)
		return "", wrap(kindOf(err), err)
	}
	e.recordStream(strategy, result.TokenUsage, result.Elapsed, true)

	response := result.FullResponse
	var persistedCall *schema.FunctionCall

	if result.FunctionCall != nil {
		fnResult, err := e.executor.Execute(ctx, *result.FunctionCall, strategy, e.execContext(), settings)
		if err != nil {
			return "", wrap(KindFunctionExecution, err)
		}
		persistedCall = result.FunctionCall
		if response == "" {
			response = fnResult.Message
		} else if fnResult.Message != "" {
			response = response + "\n\n" + fnResult.Message
		}
	}

	if response == "" {
		return "", &Error{Kind: KindEmptyResponse, Err: fmt.Errorf("stream produced no content")}
	}
	if err := e.persistAssistant(ctx, response, persistedCall, false); err != nil {
		return "", err
	}
	return response, nil
}

// assembleContext gathers the history window and health snapshot. The two
// reads are independent and fetched concurrently before being joined.
func (e *Engine) assembleContext(ctx context.Context, window int, settings config.Settings) ([]schema.ChatMessage, health.Snapshot, error) {
	if window > settings.HistoryLimit {
		window = settings.HistoryLimit
	}

	var (
		wg         sync.WaitGroup
		history    []schema.ChatMessage
		historyErr error
		snapshot   health.Snapshot
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		history, historyErr = e.store.RecentMessages(ctx, e.conversationID, window)
	}()
	go func() {
		defer wg.Done()
		// Best effort: a missing snapshot never fails the pipeline.
		snapshot = health.Assemble(ctx, e.health)
	}()
	wg.Wait()

	if historyErr != nil {
		return nil, health.Snapshot{}, historyErr
	}
	return history, snapshot, nil
}

func (e *Engine) execContext() funcexec.Context {
	return funcexec.Context{
		ConversationID: e.conversationID,
		UserID:         e.userID,
		Store:          e.store,
		Health:         e.health,
	}
}

// fail converts an execution failure into its taxonomy kind, persists a
// single error-flagged assistant message so the transcript matches what
// the user saw, and records the user-facing text as the last error.
func (e *Engine) fail(ctx context.Context, err error) error {
	kind := kindOf(err)
	message := userMessage(kind)

	e.logger.Error().Err(err).Str("kind", string(kind)).Msg("turn failed")
	e.persistAssistant(ctx, message, nil, true)

	e.mu.Lock()
	e.state.LastError = message
	e.state.CurrentResponse = message
	e.mu.Unlock()

	return wrap(kind, err)
}

func (e *Engine) persistAssistant(ctx context.Context, content string, call *schema.FunctionCall, isError bool) error {
	msg := schema.NewMessage(e.conversationID, schema.RoleAssistant, content)
	msg.FunctionCall = call
	msg.IsError = isError
	if err := e.store.CreateAssistantMessage(ctx, msg); err != nil {
		e.logger.Error().Err(err).Msg("failed to persist assistant message")
		return wrap(KindContextAssembly, err)
	}
	return nil
}

func (e *Engine) recordStream(strategy schema.RoutingStrategy, tokens int, elapsed time.Duration, success bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(schema.RoutingMetrics{
		Route:         strategy.Route,
		ExecutionTime: elapsed,
		Success:       success,
		TokenUsage:    tokens,
		RecordedAt:    time.Now().UTC(),
	})
}

func (e *Engine) beginTurn() {
	e.mu.Lock()
	e.state.IsProcessing = true
	e.state.CurrentResponse = ""
	e.state.LastError = ""
	e.mu.Unlock()
}

// finish clears the processing flag on every exit path.
func (e *Engine) finish() {
	e.mu.Lock()
	e.state.IsProcessing = false
	e.state.StreamingTokens = false
	e.mu.Unlock()
	e.processing.Store(false)
}

func (e *Engine) setResponse(response string) {
	e.mu.Lock()
	e.state.CurrentResponse = response
	e.mu.Unlock()
}

func (e *Engine) appendResponse(delta string) {
	e.mu.Lock()
	e.state.CurrentResponse += delta
	e.mu.Unlock()
}

func (e *Engine) setStreamingTokens(streaming bool) {
	e.mu.Lock()
	e.state.StreamingTokens = streaming
	e.mu.Unlock()
}

func trimHistory(history []schema.ChatMessage) []schema.ChatMessage {
	out := make([]schema.ChatMessage, 0, len(history))
	for _, msg := range history {
		if msg.IsError {
			continue
		}
		out = append(out, msg)
	}
	return out
}
