package session

import (
	"errors"
	"fmt"
)

var (
	ErrNegotiationFailed     = errors.New("negotiation failed")
	ErrICEFailed             = errors.New("ice connectivity failed")
	ErrRenegotiationInFlight = errors.New("renegotiation already in flight")
	ErrSessionClosed         = errors.New("session closed")
	ErrUnknownPeer           = errors.New("unknown peer")
)

// SessionError wraps a failure with the operation and the remote peer it
// concerns, so the presentation layer can report something actionable.
type SessionError struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func newError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}
