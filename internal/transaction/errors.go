package transaction

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("transaction: session not found")

	// ErrSessionClosed is returned when closing a session that is no longer open.
	ErrSessionClosed = errors.New("transaction: session already closed")

	// ErrInvalidSession is returned when a session is missing required fields.
	ErrInvalidSession = errors.New("transaction: invalid session")
)
