package config

import "sync"

// Store holds the live routing configuration. Reads take a value snapshot
// so an in-flight decision keeps a consistent view even if the settings
// change mid-request; writes go through a single clamped update path.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore creates a store seeded with clamped settings.
func NewStore(settings Settings) *Store {
	settings.Clamp()
	return &Store{settings: settings}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies fn to a copy of the settings, clamps the result, and
// installs it atomically. A failed fn leaves the settings untouched.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	if err := fn(&next); err != nil {
		return err
	}
	next.Clamp()
	s.settings = next
	return nil
}

// Set assigns one field by yaml key with clamping.
func (s *Store) Set(key, value string) error {
	return s.Update(func(settings *Settings) error {
		return settings.Set(key, value)
	})
}
