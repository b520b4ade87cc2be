package session

import (
	"context"

	"github.com/pathas/manualbot/core"
)

// Store holds one conversation session per user identity.
// Implementations must be thread-safe; callers are responsible for
// sequencing transitions of the same user (see conversation.Dispatcher).
type Store interface {
	// Get retrieves the session for userID.
	// Returns (nil, nil) if no session exists.
	Get(ctx context.Context, userID string) (*core.Session, error)

	// Put stores the session, overwriting any existing record for the user.
	Put(ctx context.Context, session *core.Session) error

	// Delete removes the session for userID.
	// Deleting a session that does not exist is not an error.
	Delete(ctx context.Context, userID string) error

	// Close closes the store and releases resources.
	Close() error
}
