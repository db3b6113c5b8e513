package prompts

import "sync"

// Store maps user ids to template-pair overrides. Entries are created
// lazily on first access and only an explicit Reset returns a user to the
// defaults. Concurrent Set calls for the same user resolve last-write-wins;
// the map itself is never corrupted.
type Store struct {
	defaults Pair

	mu     sync.RWMutex
	byUser map[string]Pair
}

func NewStore(defaults Pair) *Store {
	return &Store{
		defaults: defaults,
		byUser:   make(map[string]Pair),
	}
}

// Get returns the user's pair, materializing the default entry on first
// access.
func (s *Store) Get(userID string) Pair {
	s.mu.RLock()
	pair, ok := s.byUser[userID]
	s.mu.RUnlock()
	if ok {
		return pair
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pair, ok := s.byUser[userID]; ok {
		return pair
	}
	s.byUser[userID] = s.defaults
	return s.defaults
}

func (s *Store) Set(userID string, pair Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = pair
}

// Reset restores the user to the process-wide defaults.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = s.defaults
}

func (s *Store) Defaults() Pair {
	return s.defaults
}
