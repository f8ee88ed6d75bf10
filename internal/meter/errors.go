package meter

import "errors"

// ErrInvalidReading is returned when a reading lacks a session or value.
var ErrInvalidReading = errors.New("meter: invalid reading")
