package conversation

import "errors"

var (
	// ErrAnswererRequired is returned when a retrieval pipeline is not provided.
	ErrAnswererRequired = errors.New("answerer required")

	// ErrStoreRequired is returned when a session store is not provided.
	ErrStoreRequired = errors.New("session store required")

	// ErrMachineRequired is returned when a state machine is not provided.
	ErrMachineRequired = errors.New("state machine required")

	// ErrEventDropped is returned when the session store could not be
	// consulted and the event was discarded without a reply.
	ErrEventDropped = errors.New("event dropped")
)
