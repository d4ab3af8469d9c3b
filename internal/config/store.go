package config

import "sync"

// Store holds the current execution config and supports atomic reloads.
// Runs that already took a snapshot keep it; new runs see the swapped config.
type Store struct {
	mu  sync.RWMutex
	cfg *ExecutionConfig
}

// NewStore creates a store seeded with an initial config.
func NewStore(cfg *ExecutionConfig) *Store {
	return &Store{cfg: cfg}
}

// Get returns the current config snapshot.
func (s *Store) Get() *ExecutionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Swap replaces the current config.
func (s *Store) Swap(cfg *ExecutionConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Reload loads the file at path and swaps it in. The old config stays in
// place when loading fails.
func (s *Store) Reload(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	s.Swap(cfg)
	return nil
}
