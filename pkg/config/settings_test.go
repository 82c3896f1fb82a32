package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/peakform/coachflow/pkg/schema"
)

func TestClampRanges(t *testing.T) {
	s := Settings{
		HybridPercentage:             1.5,
		ForcedRoute:                  "teleport",
		DirectAITimeoutMs:            10,
		TokenEfficiencyThreshold:     -5,
		NutritionConfidenceThreshold: -0.2,
		RequestTimeoutMs:             900000,
		HistoryLimit:                 0,
	}
	s.Clamp()

	if s.HybridPercentage != 1.0 {
		t.Fatalf("HybridPercentage = %v, want 1.0", s.HybridPercentage)
	}
	if s.ForcedRoute != "" {
		t.Fatalf("ForcedRoute = %q, want cleared", s.ForcedRoute)
	}
	if s.DirectAITimeoutMs != 500 {
		t.Fatalf("DirectAITimeoutMs = %d, want 500", s.DirectAITimeoutMs)
	}
	if s.TokenEfficiencyThreshold != 100 {
		t.Fatalf("TokenEfficiencyThreshold = %d, want 100", s.TokenEfficiencyThreshold)
	}
	if s.NutritionConfidenceThreshold != 0 {
		t.Fatalf("NutritionConfidenceThreshold = %v, want 0", s.NutritionConfidenceThreshold)
	}
	if s.RequestTimeoutMs != 120000 {
		t.Fatalf("RequestTimeoutMs = %d, want 120000", s.RequestTimeoutMs)
	}
	if s.HistoryLimit != 1 {
		t.Fatalf("HistoryLimit = %d, want 1", s.HistoryLimit)
	}
}

func TestClampKeepsValidValues(t *testing.T) {
	s := DefaultSettings()
	before := s
	s.Clamp()
	if s != before {
		t.Fatalf("defaults changed by Clamp: %+v vs %+v", s, before)
	}
}

func TestSettingsSet(t *testing.T) {
	s := DefaultSettings()

	if err := s.Set("hybrid_percentage", "0.35"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.HybridPercentage != 0.35 {
		t.Fatalf("HybridPercentage = %v, want 0.35", s.HybridPercentage)
	}

	if err := s.Set("forced_route", "direct_ai"); err != nil {
		t.Fatalf("Set forced_route: %v", err)
	}
	if s.ForcedRoute != schema.RouteDirectAI {
		t.Fatalf("ForcedRoute = %q, want direct_ai", s.ForcedRoute)
	}

	if err := s.Set("forced_route", "warp"); err == nil {
		t.Fatal("expected invalid route to fail")
	}

	err := s.Set("no_such_key", "1")
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError, got %v", err)
	}
}

func TestStoreSetClamps(t *testing.T) {
	store := NewStore(DefaultSettings())

	if err := store.Set("hybrid_percentage", "1.5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Snapshot().HybridPercentage; got != 1.0 {
		t.Fatalf("HybridPercentage = %v, want clamped 1.0", got)
	}
}

func TestStoreUpdateFailureLeavesSettings(t *testing.T) {
	store := NewStore(DefaultSettings())
	before := store.Snapshot()

	err := store.Update(func(s *Settings) error {
		s.HybridPercentage = 0.9
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected update error")
	}
	if got := store.Snapshot(); got != before {
		t.Fatalf("failed update changed settings: %+v vs %+v", got, before)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	store := NewStore(DefaultSettings())
	snap := store.Snapshot()
	snap.HybridPercentage = 0.99

	if store.Snapshot().HybridPercentage == 0.99 {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")

	want := DefaultSettings()
	want.HybridPercentage = 0.4
	want.ForcedRoute = schema.RouteHybrid
	if err := SaveSettings(path, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing settings file")
	}
}

func TestLoadSettingsPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	if err := os.WriteFile(path, []byte("hybrid_percentage: 0.5\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.HybridPercentage != 0.5 {
		t.Fatalf("HybridPercentage = %v, want 0.5", got.HybridPercentage)
	}
	if got.HistoryLimit != DefaultSettings().HistoryLimit {
		t.Fatalf("HistoryLimit = %d, want default %d", got.HistoryLimit, DefaultSettings().HistoryLimit)
	}
}
