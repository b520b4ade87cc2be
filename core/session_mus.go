package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// SessionMUS serializes Session values in the MUS binary format for
// persistent session stores. Timestamps are encoded as Unix microseconds.
var SessionMUS = sessionMUS{}

type sessionMUS struct{}

// Marshal writes the session into bs and returns the number of bytes used.
// bs must be at least Size(session) bytes long.
func (sessionMUS) Marshal(session Session, bs []byte) (n int) {
	n = ord.String.Marshal(session.UserID, bs)
	n += varint.Int.Marshal(int(session.State), bs[n:])
	n += ord.String.Marshal(session.SelectedModel, bs[n:])
	n += varint.Int64.Marshal(session.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(session.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

// Unmarshal reads a session from bs.
func (sessionMUS) Unmarshal(bs []byte) (session Session, n int, err error) {
	var n1 int
	session.UserID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var state int
	state, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	session.State = SessionState(state)
	session.SelectedModel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	session.CreatedAt = time.UnixMicro(micros).UTC()
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	session.UpdatedAt = time.UnixMicro(micros).UTC()

	if verr := ValidateSessionState(session.State); verr != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidSession, verr)
	}
	return
}

// Size returns the number of bytes Marshal will use for the session.
func (sessionMUS) Size(session Session) (size int) {
	size = ord.String.Size(session.UserID)
	size += varint.Int.Size(int(session.State))
	size += ord.String.Size(session.SelectedModel)
	size += varint.Int64.Size(session.CreatedAt.UnixMicro())
	size += varint.Int64.Size(session.UpdatedAt.UnixMicro())
	return size
}
