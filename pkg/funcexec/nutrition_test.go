package funcexec

import (
	"strings"
	"testing"
)

func TestParseNutritionValid(t *testing.T) {
	text := `{"name":"chicken and rice","calories":450,"protein":30,"carbs":40,"fat":15,"confidence":"high"}`

	entry, err := ParseNutrition(text)
	if err != nil {
		t.Fatalf("ParseNutrition: %v", err)
	}
	if entry.Name != "chicken and rice" {
		t.Fatalf("name = %q", entry.Name)
	}
	if entry.Calories != 450 || entry.Protein != 30 {
		t.Fatalf("macros = %d cal %dg protein, want 450/30", entry.Calories, entry.Protein)
	}
}

func TestParseNutritionTextAroundJSON(t *testing.T) {
	text := "Sure! Here is the breakdown:\n" +
		`{"name":"oatmeal","calories":350,"protein":12,"carbs":60,"fat":6,"confidence":"medium"}` +
		"\nLet me know if that looks right."

	entry, err := ParseNutrition(text)
	if err != nil {
		t.Fatalf("ParseNutrition: %v", err)
	}
	if entry.Name != "oatmeal" {
		t.Fatalf("name = %q, want oatmeal", entry.Name)
	}
}

func TestParseNutritionNestedAndStrings(t *testing.T) {
	// Braces inside strings and nested component objects must not confuse
	// extraction.
	text := `note {"name":"bowl {spicy}","calories":700,"protein":40,"carbs":80,"fat":20,"confidence":"high",` +
		`"components":[{"name":"rice","calories":200,"protein":4,"carbs":45,"fat":1}]} trailing`

	entry, err := ParseNutrition(text)
	if err != nil {
		t.Fatalf("ParseNutrition: %v", err)
	}
	if entry.Name != "bowl {spicy}" {
		t.Fatalf("name = %q", entry.Name)
	}
	if len(entry.Components) != 1 || entry.Components[0].Name != "rice" {
		t.Fatalf("components = %+v", entry.Components)
	}
}

func TestParseNutritionRejectsOutOfRange(t *testing.T) {
	cases := []string{
		`{"name":"mega meal","calories":9000,"protein":30,"carbs":40,"fat":15,"confidence":"high"}`,
		`{"name":"protein bomb","calories":800,"protein":500,"carbs":40,"fat":15,"confidence":"high"}`,
		`{"name":"zero","calories":0,"protein":0,"carbs":0,"fat":0,"confidence":"high"}`,
		`{"name":"negative","calories":-50,"protein":5,"carbs":5,"fat":5,"confidence":"high"}`,
	}
	for _, text := range cases {
		if _, err := ParseNutrition(text); err == nil {
			t.Fatalf("expected rejection for %s", text)
		}
	}
}

func TestParseNutritionFiltersBadComponents(t *testing.T) {
	text := `{"name":"big plate","calories":900,"protein":60,"carbs":90,"fat":25,"confidence":"high",` +
		`"components":[` +
		`{"name":"chicken","calories":280,"protein":52,"carbs":0,"fat":6},` +
		`{"name":"glitch","calories":99999,"protein":2,"carbs":2,"fat":2},` +
		`{"name":"rice","calories":170,"protein":3,"carbs":37,"fat":0}]}`

	entry, err := ParseNutrition(text)
	if err != nil {
		t.Fatalf("ParseNutrition: %v", err)
	}
	if len(entry.Components) != 2 {
		t.Fatalf("components = %+v, want the bad one filtered", entry.Components)
	}
	for _, c := range entry.Components {
		if c.Name == "glitch" {
			t.Fatal("out-of-range component survived filtering")
		}
	}
}

func TestParseNutritionMissingName(t *testing.T) {
	if _, err := ParseNutrition(`{"calories":400,"protein":30,"carbs":40,"fat":10,"confidence":"high"}`); err == nil {
		t.Fatal("expected missing name to fail")
	}
}

func TestParseNutritionNoJSON(t *testing.T) {
	_, err := ParseNutrition("I could not parse that meal, sorry.")
	if err == nil || !strings.Contains(err.Error(), "no JSON object") {
		t.Fatalf("err = %v, want no JSON object", err)
	}
}

func TestParseNutritionUnterminated(t *testing.T) {
	if _, err := ParseNutrition(`{"name":"half`); err == nil {
		t.Fatal("expected unterminated JSON to fail")
	}
}

func TestConfidenceScore(t *testing.T) {
	cases := []struct {
		word  string
		score float64
	}{
		{"high", 0.9},
		{"High", 0.9},
		{"medium", 0.7},
		{"low", 0.3},
		{"bogus", 0},
		{"", 0},
	}
	for _, tc := range cases {
		entry := NutritionEntry{Confidence: tc.word}
		if got := entry.ConfidenceScore(); got != tc.score {
			t.Fatalf("ConfidenceScore(%q) = %v, want %v", tc.word, got, tc.score)
		}
	}
}
