package funcexec

import (
	"encoding/json"
	"fmt"
	"strings"
)

const nutritionSystemPrompt = `You are a nutrition parsing assistant. When given a food description, estimate the macros.

RESPOND ONLY WITH JSON in this exact format:
{
  "name": "cleaned up food name",
  "calories": 450,
  "protein": 35,
  "carbs": 40,
  "fat": 15,
  "confidence": "high",
  "components": [
    {"name": "chicken breast", "calories": 280, "protein": 52, "carbs": 0, "fat": 6},
    {"name": "rice", "calories": 170, "protein": 3, "carbs": 37, "fat": 0}
  ]
}

confidence levels:
- "high": specific foods with known nutrition (e.g., "4 eggs", "chipotle bowl")
- "medium": general descriptions you can estimate (e.g., "chicken stir fry")
- "low": vague or unusual items (e.g., "some snacks")

components: Break down compound meals into individual items. For single items, omit components or use empty array.

Be practical and realistic. Round to whole numbers.
ONLY output the JSON, no other text.`

// Plausibility bounds for a single parsed entry. Components outside the
// bounds are filtered; an out-of-range top-level entry rejects the parse.
const (
	maxCalories = 5000
	maxProtein  = 400
	maxCarbs    = 600
	maxFat      = 300
)

// NutritionComponent is a single food item inside a compound meal.
type NutritionComponent struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fat      int    `json:"fat"`
}

// NutritionEntry is a parsed and validated nutrition estimate.
type NutritionEntry struct {
	Name       string               `json:"name"`
	Calories   int                  `json:"calories"`
	Protein    int                  `json:"protein"`
	Carbs      int                  `json:"carbs"`
	Fat        int                  `json:"fat"`
	Confidence string               `json:"confidence"`
	Components []NutritionComponent `json:"components,omitempty"`
}

// ConfidenceScore maps the model's confidence word onto [0,1].
func (e *NutritionEntry) ConfidenceScore() float64 {
	switch strings.ToLower(e.Confidence) {
	case "high":
		return 0.9
	case "medium":
		return 0.7
	case "low":
		return 0.3
	}
	return 0
}

// Data returns the entry as a generic result payload.
func (e *NutritionEntry) Data() map[string]any {
	components := make([]map[string]any, 0, len(e.Components))
	for _, c := range e.Components {
		components = append(components, map[string]any{
			"name": c.Name, "calories": c.Calories,
			"protein": c.Protein, "carbs": c.Carbs, "fat": c.Fat,
		})
	}
	data := map[string]any{
		"name":       e.Name,
		"calories":   e.Calories,
		"protein":    e.Protein,
		"carbs":      e.Carbs,
		"fat":        e.Fat,
		"confidence": e.Confidence,
	}
	if len(components) > 0 {
		data["components"] = components
	}
	return data
}

// ParseNutrition extracts and validates the strict JSON contract from a
// model response, tolerating leading or trailing prose around the JSON
// object. Out-of-range components are filtered rather than failing the
// whole parse; an out-of-range entry is rejected.
func ParseNutrition(text string) (*NutritionEntry, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var entry NutritionEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("malformed nutrition payload: %w", err)
	}
	if entry.Name == "" {
		return nil, fmt.Errorf("nutrition payload missing name")
	}
	if !plausible(entry.Calories, entry.Protein, entry.Carbs, entry.Fat) {
		return nil, fmt.Errorf("nutrition values out of range: %d cal, %dg protein, %dg carbs, %dg fat",
			entry.Calories, entry.Protein, entry.Carbs, entry.Fat)
	}

	kept := entry.Components[:0]
	for _, c := range entry.Components {
		if c.Calories >= 0 && c.Calories < maxCalories &&
			c.Protein >= 0 && c.Protein <= maxProtein &&
			c.Carbs >= 0 && c.Carbs <= maxCarbs &&
			c.Fat >= 0 && c.Fat <= maxFat {
			kept = append(kept, c)
		}
	}
	entry.Components = kept
	return &entry, nil
}

func plausible(calories, protein, carbs, fat int) bool {
	return calories > 0 && calories < maxCalories &&
		protein >= 0 && protein <= maxProtein &&
		carbs >= 0 && carbs <= maxCarbs &&
		fat >= 0 && fat <= maxFat
}

// extractJSONObject finds the outermost brace-balanced JSON object in
// text, handling nested objects and arrays.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}
