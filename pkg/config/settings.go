package config

import (
	"strconv"
	"strings"

	"github.com/peakform/coachflow/pkg/schema"
)

// Settings is the process-wide routing configuration. Values are read
// through a Store snapshot at the start of each routing decision and
// written only through the Store's clamped update path.
type Settings struct {
	HybridEnabled                bool         `yaml:"hybrid_enabled"`
	HybridPercentage             float64      `yaml:"hybrid_percentage"`
	ForcedRoute                  schema.Route `yaml:"forced_route,omitempty"`
	FallbackEnabled              bool         `yaml:"fallback_enabled"`
	DirectAITimeoutMs            int          `yaml:"direct_ai_timeout_ms"`
	TokenEfficiencyThreshold     int          `yaml:"token_efficiency_threshold"`
	NutritionConfidenceThreshold float64      `yaml:"nutrition_confidence_threshold"`
	RequestTimeoutMs             int          `yaml:"request_timeout_ms"`
	HistoryLimit                 int          `yaml:"history_limit"`
	MonitoringEnabled            bool         `yaml:"monitoring_enabled"`
}

// DefaultSettings returns the routing configuration used when no file or
// environment overrides are present.
func DefaultSettings() Settings {
	return Settings{
		HybridEnabled:                true,
		HybridPercentage:             0.2,
		FallbackEnabled:              true,
		DirectAITimeoutMs:            5000,
		TokenEfficiencyThreshold:     2000,
		NutritionConfidenceThreshold: 0.7,
		RequestTimeoutMs:             30000,
		HistoryLimit:                 20,
		MonitoringEnabled:            true,
	}
}

// Clamp forces every field into its safe range. Each field is clamped
// independently so one bad value never corrupts the rest.
func (s *Settings) Clamp() {
	s.HybridPercentage = clampFloat(s.HybridPercentage, 0, 1)
	if s.ForcedRoute != "" && !schema.ValidRoute(string(s.ForcedRoute)) {
		s.ForcedRoute = ""
	}
	s.DirectAITimeoutMs = clampInt(s.DirectAITimeoutMs, 500, 60000)
	s.TokenEfficiencyThreshold = clampInt(s.TokenEfficiencyThreshold, 100, 100000)
	s.NutritionConfidenceThreshold = clampFloat(s.NutritionConfidenceThreshold, 0, 1)
	s.RequestTimeoutMs = clampInt(s.RequestTimeoutMs, 1000, 120000)
	s.HistoryLimit = clampInt(s.HistoryLimit, 1, 100)
}

// Set assigns a field by its yaml key, parsing value from text. Unknown
// keys and unparseable values return an error; the assigned value is still
// clamped by the caller's update path.
func (s *Settings) Set(key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "hybrid_enabled":
		return setBool(&s.HybridEnabled, value)
	case "hybrid_percentage":
		return setFloat(&s.HybridPercentage, value)
	case "forced_route":
		if value != "" && !schema.ValidRoute(value) {
			return &KeyError{Key: key, Value: value}
		}
		s.ForcedRoute = schema.Route(value)
		return nil
	case "fallback_enabled":
		return setBool(&s.FallbackEnabled, value)
	case "direct_ai_timeout_ms":
		return setInt(&s.DirectAITimeoutMs, value)
	case "token_efficiency_threshold":
		return setInt(&s.TokenEfficiencyThreshold, value)
	case "nutrition_confidence_threshold":
		return setFloat(&s.NutritionConfidenceThreshold, value)
	case "request_timeout_ms":
		return setInt(&s.RequestTimeoutMs, value)
	case "history_limit":
		return setInt(&s.HistoryLimit, value)
	case "monitoring_enabled":
		return setBool(&s.MonitoringEnabled, value)
	}
	return &KeyError{Key: key, Value: value}
}

// KeyError reports an unknown settings key or an unparseable value.
type KeyError struct {
	Key   string
	Value string
}

func (e *KeyError) Error() string {
	return "invalid setting " + e.Key + "=" + e.Value
}

func setBool(dst *bool, value string) error {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
