// Package session binds a document index, a prompt template pair, and a
// generation provider under a session id, and runs retrieval-augmented
// queries against that binding.
package session

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"docquery/index"
	"docquery/llm"
	"docquery/prompts"
)

// ErrNotFound is returned for any lookup of a session id that was never
// created or was explicitly deleted.
var ErrNotFound = errors.New("session not found")

// Session owns one index exclusively. The template pair can be hot-swapped
// between queries; each query reads it exactly once at its start.
type Session struct {
	ID     string
	UserID string
	Index  index.Index
	LLM    llm.Client

	templates atomic.Pointer[prompts.Pair]
}

func New(id, userID string, idx index.Index, client llm.Client, pair prompts.Pair) *Session {
	s := &Session{
		ID:     id,
		UserID: userID,
		Index:  idx,
		LLM:    client,
	}
	s.templates.Store(&pair)
	return s
}

// Templates returns the current pair in a single atomic read.
func (s *Session) Templates() prompts.Pair {
	return *s.templates.Load()
}

// SetTemplates swaps the pair without touching the index or provider
// binding. Queries already past their initial read keep the old pair.
func (s *Session) SetTemplates(pair prompts.Pair) {
	s.templates.Store(&pair)
}

// Store is the session registry. Sessions are never evicted automatically;
// growth is unbounded until explicit deletion.
type Store struct {
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create registers the session. An existing session under the same id is
// silently replaced, last write wins; the displaced index is released to
// the garbage collector once in-flight queries against it finish.
func (s *Store) Create(sess *Session) {
	s.mu.Lock()
	_, replaced := s.sessions[sess.ID]
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if replaced {
		s.logger.Printf("session %s replaced; previous index left to GC", sess.ID)
	}
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns the user's sessions, in no particular order.
func (s *Store) List(userID string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			result = append(result, sess)
		}
	}
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
