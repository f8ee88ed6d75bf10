package gateway

import "errors"

var (
	// ErrConnectionClosed is returned to callers waiting on a connection that
	// has closed.
	ErrConnectionClosed = errors.New("gateway: connection closed")

	// ErrCallTimeout is returned when a charge point does not answer an
	// outbound Call in time.
	ErrCallTimeout = errors.New("gateway: call timed out")

	// ErrNotConnected is returned when no live connection exists for a station.
	ErrNotConnected = errors.New("gateway: station not connected")
)
