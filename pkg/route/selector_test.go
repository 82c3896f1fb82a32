package route

import (
	"strings"
	"testing"

	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

func experimentSettings() config.Settings {
	s := config.DefaultSettings()
	s.HybridEnabled = true
	s.HybridPercentage = 1.0
	s.FallbackEnabled = true
	return s
}

func TestDecideControlGroup(t *testing.T) {
	s := config.DefaultSettings()
	s.HybridEnabled = false

	strategy := Decide("u1", "what is progressive overload?", nil, UserContext{}, s)
	if strategy.Route != schema.RouteFunctionCalling {
		t.Fatalf("route = %q, want function_calling", strategy.Route)
	}
	if strategy.FallbackEnabled {
		t.Fatal("control group strategy must not enable fallback")
	}
	if strategy.Reason != "control group" {
		t.Fatalf("reason = %q, want control group", strategy.Reason)
	}
}

func TestDecideForcedRoute(t *testing.T) {
	s := experimentSettings()
	s.ForcedRoute = schema.RouteDirectAI

	strategy := Decide("u1", "anything at all", nil, UserContext{}, s)
	if strategy.Route != schema.RouteDirectAI {
		t.Fatalf("route = %q, want direct_ai", strategy.Route)
	}
	if !strategy.FallbackEnabled {
		t.Fatal("forced route should inherit the fallback setting")
	}
}

func TestDecideStableBucketing(t *testing.T) {
	s := experimentSettings()
	s.HybridPercentage = 0.5

	input := "how does creatine work?"
	first := Decide("alice", input, nil, UserContext{}, s)
	for i := 0; i < 20; i++ {
		got := Decide("alice", input, nil, UserContext{}, s)
		if got.Route != first.Route || got.Reason != first.Reason {
			t.Fatalf("decision changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestDecideBucketBoundaries(t *testing.T) {
	s := experimentSettings()

	// Percentage 0 excludes everyone, 1.0 includes everyone.
	s.HybridPercentage = 0
	strategy := Decide("u1", "what is hypertrophy?", nil, UserContext{}, s)
	if strategy.Reason != "outside experiment group" {
		t.Fatalf("reason = %q, want outside experiment group", strategy.Reason)
	}
	if strategy.FallbackEnabled {
		t.Fatal("excluded users must not have fallback enabled")
	}

	s.HybridPercentage = 1.0
	strategy = Decide("u1", "what is hypertrophy?", nil, UserContext{}, s)
	if strategy.Reason == "outside experiment group" {
		t.Fatal("percentage 1.0 should include every user")
	}
}

func TestDecideRoutes(t *testing.T) {
	s := experimentSettings()

	cases := []struct {
		name    string
		input   string
		history int
		route   schema.Route
	}{
		{"nutrition quantity", "I had 2 eggs and a slice of toast", 0, schema.RouteDirectAI},
		{"educational question", "what is progressive overload in strength training?", 0, schema.RouteDirectAI},
		{"mixed signals", "what is the protein in the chicken and rice I ate?", 0, schema.RouteHybrid},
		{"short ambiguous", "feeling a bit sore", 0, schema.RouteHybrid},
		{"long input", strings.Repeat("my training has been going in circles lately ", 4), 0, schema.RouteFunctionCalling},
		{"deep history", "and then what happened with my plan after that change", 8, schema.RouteFunctionCalling},
	}
	for _, tc := range cases {
		history := make([]schema.ChatMessage, tc.history)
		strategy := Decide("u1", tc.input, history, UserContext{}, s)
		if strategy.Route != tc.route {
			t.Fatalf("%s: route = %q (%s), want %q", tc.name, strategy.Route, strategy.Reason, tc.route)
		}
	}
}

func TestStrategyFallbackDerivesNewValue(t *testing.T) {
	original := schema.NewStrategy(schema.RouteDirectAI, "simple nutrition parsing signal", true)
	derived := original.Fallback(schema.RouteFunctionCalling, "direct path failed")

	if derived.Route != schema.RouteFunctionCalling {
		t.Fatalf("derived route = %q, want function_calling", derived.Route)
	}
	if derived.FallbackEnabled {
		t.Fatal("derived strategy must have fallback disabled")
	}
	if original.Route != schema.RouteDirectAI || !original.FallbackEnabled {
		t.Fatalf("original strategy mutated: %+v", original)
	}
}

func TestDirectIntent(t *testing.T) {
	call := DirectIntent("I ate 200g of chicken with rice")
	if call.Name != "parse_nutrition" {
		t.Fatalf("name = %q, want parse_nutrition", call.Name)
	}
	if call.Arguments["description"] != "I ate 200g of chicken with rice" {
		t.Fatalf("description = %v", call.Arguments["description"])
	}

	call = DirectIntent("what is a deload week?")
	if call.Name != "explain_concept" {
		t.Fatalf("name = %q, want explain_concept", call.Name)
	}
	if call.Arguments["topic"] != "what is a deload week?" {
		t.Fatalf("topic = %v", call.Arguments["topic"])
	}
}

func TestLooksLikeNutritionWordBoundaries(t *testing.T) {
	// "pilates" contains "ate" but not on a word boundary.
	if looksLikeNutrition("pilates class was hard") {
		t.Fatal("pilates must not count as a food word")
	}
	if !looksLikeNutrition("i had chicken and rice for dinner") {
		t.Fatal("multiple food words should signal nutrition")
	}
}
