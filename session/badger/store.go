package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/session"
)

const sessionKeyPrefix = "sess"

// makeSessionKey generates the storage key for a user's session.
func makeSessionKey(userID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionKeyPrefix, userID))
}

// Store implements session.Store on BadgerDB.
// Session values are serialized with core.SessionMUS.
type Store struct {
	backend *Backend
}

var _ session.Store = (*Store)(nil)

// NewStore creates a session store over an open backend.
//
// Returns session.Store interface to enforce abstraction.
func NewStore(backend *Backend) (session.Store, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &Store{backend: backend}, nil
}

// NewMemoryStore creates a store over an ephemeral in-memory backend.
// Returns the store and the backend; the caller must close both.
func NewMemoryStore() (session.Store, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return store, backend, nil
}

// Get implements session.Store.
func (s *Store) Get(ctx context.Context, userID string) (*core.Session, error) {
	if s.backend.IsClosed() {
		return nil, session.ErrStoreClosed
	}

	var found *core.Session
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSessionKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", session.ErrUnavailable, err)
		}
		return item.Value(func(val []byte) error {
			decoded, _, err := core.SessionMUS.Unmarshal(val)
			if err != nil {
				return fmt.Errorf("%w: %w", session.ErrSerializationFailed, err)
			}
			found = &decoded
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Put implements session.Store.
func (s *Store) Put(ctx context.Context, sess *core.Session) error {
	if err := core.ValidateSession(sess); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return session.ErrStoreClosed
	}

	value := make([]byte, core.SessionMUS.Size(*sess))
	core.SessionMUS.Marshal(*sess, value)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSessionKey(sess.UserID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrUnavailable, err)
	}
	return nil
}

// Delete implements session.Store.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if s.backend.IsClosed() {
		return session.ErrStoreClosed
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeSessionKey(userID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrUnavailable, err)
	}
	return nil
}

// Close implements session.Store. The backend is owned by the caller and
// closed separately.
func (s *Store) Close() error {
	return nil
}
