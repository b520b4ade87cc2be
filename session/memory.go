package session

import (
	"context"
	"sync"

	"github.com/pathas/manualbot/core"
)

// memoryStore implements Store using an in-process map.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
	closed   bool
}

var _ Store = (*memoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
// Sessions do not survive process restarts; use session/badger for
// persistence.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]core.Session),
	}
}

// Get implements Store.
func (s *memoryStore) Get(ctx context.Context, userID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stored, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := stored
	return &copied, nil
}

// Put implements Store.
func (s *memoryStore) Put(ctx context.Context, session *core.Session) error {
	if err := core.ValidateSession(session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.sessions[session.UserID] = *session
	return nil
}

// Delete implements Store.
func (s *memoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	delete(s.sessions, userID)
	return nil
}

// Close implements Store.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.closed = true
	return nil
}
