package station

import "errors"

// Domain errors for the station package.
var (
	// ErrStationNotFound is returned when a station ID does not exist.
	ErrStationNotFound = errors.New("station: not found")

	// ErrConnectorNotFound is returned when a (station, connector) pair does not exist.
	ErrConnectorNotFound = errors.New("station: connector not found")

	// ErrInvalidStation is returned when a station identity is unusable.
	ErrInvalidStation = errors.New("station: invalid identity")
)
