package ocpp

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireLayout is what the gateway sends: UTC with millisecond precision.
const wireLayout = "2006-01-02T15:04:05.000Z07:00"

var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// DateTime is an OCPP timestamp.
type DateTime struct {
	time.Time
}

// NewDateTime wraps t.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t}
}

// ParseDateTime reads an OCPP timestamp. Zone-less values are taken as UTC.
func ParseDateTime(s string) (DateTime, error) {
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{Time: t.UTC()}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(wireLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
