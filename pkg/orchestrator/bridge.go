package orchestrator

import (
	"fmt"
	"strings"

	"github.com/peakform/coachflow/pkg/health"
	"github.com/peakform/coachflow/pkg/schema"
	"github.com/peakform/coachflow/pkg/stream"
)

// streamBridge connects the stream handler's callbacks to the engine's
// observable state. Callbacks arrive in event order on the consuming
// goroutine, so state updates never interleave within one turn.
type streamBridge struct {
	engine *Engine
}

func newStreamBridge(e *Engine) *stream.Handler {
	return stream.NewHandler(&streamBridge{engine: e})
}

func (b *streamBridge) OnDelta(text string, first bool) {
	if first {
		b.engine.logger.Debug().Msg("first token received")
	}
	b.engine.appendResponse(text)
}

func (b *streamBridge) OnFunctionCall(call schema.FunctionCall) {
	b.engine.logger.Debug().Str("function", call.Name).Msg("function call detected")
}

func (b *streamBridge) OnUsage(tokens int) {
	b.engine.logger.Debug().Int("tokens", tokens).Msg("usage reported")
}

// buildSystemPrompt renders the coach persona with whatever health
// context is available. Missing data simply shortens the prompt.
func buildSystemPrompt(snapshot health.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("You are a supportive, practical fitness and nutrition coach. ")
	sb.WriteString("Keep replies short and actionable. ")
	sb.WriteString("Use the available functions to look up or log the user's data when relevant.")

	if !snapshot.HasData {
		return sb.String()
	}

	sb.WriteString("\n\nCurrent context:")
	if snapshot.Goals.Primary != "" {
		sb.WriteString("\n- Primary goal: " + snapshot.Goals.Primary)
	}
	if snapshot.Goals.DailyCalories > 0 {
		fmt.Fprintf(&sb, "\n- Daily targets: %d calories, %dg protein",
			snapshot.Goals.DailyCalories, snapshot.Goals.DailyProtein)
	}
	if snapshot.Activity.Steps > 0 || snapshot.Activity.WorkoutsThisWk > 0 {
		fmt.Fprintf(&sb, "\n- Activity today: %d steps, %d workouts this week",
			snapshot.Activity.Steps, snapshot.Activity.WorkoutsThisWk)
	}
	if snapshot.Body.WeightKg > 0 {
		fmt.Fprintf(&sb, "\n- Weight: %.1f kg", snapshot.Body.WeightKg)
	}
	return sb.String()
}
