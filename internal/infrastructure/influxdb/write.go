package influxdb

import (
	"context"
	"strconv"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/ocpp-gateway/internal/meter"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

const (
	measurementMeterValues = "meter_values"
	measurementSessions    = "sessions"
)

// WriteMeterReading queues a reading for the next batch. It implements
// meter.Sink.
func (c *Client) WriteMeterReading(_ context.Context, r meter.Reading) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writeAPI.WritePoint(meterPoint(r))
	return nil
}

// WriteSession queues the totals of a closed session. Open sessions are
// ignored.
func (c *Client) WriteSession(s *transaction.Session) {
	if !c.IsConnected() {
		return
	}
	if p := sessionPoint(s); p != nil {
		c.writeAPI.WritePoint(p)
	}
}

// SessionStarted implements transaction.EventPublisher; only closed
// sessions are written.
func (c *Client) SessionStarted(context.Context, *transaction.Session) {}

// SessionStopped implements transaction.EventPublisher.
func (c *Client) SessionStopped(_ context.Context, s *transaction.Session) {
	c.WriteSession(s)
}

func meterPoint(r meter.Reading) *write.Point {
	tags := map[string]string{
		"station_id":   r.StationID,
		"connector_id": strconv.Itoa(r.ConnectorID),
		"measurand":    r.Measurand,
	}
	for k, v := range map[string]string{
		"unit":     r.Unit,
		"phase":    r.Phase,
		"location": r.Location,
		"context":  r.Context,
	} {
		if v != "" {
			tags[k] = v
		}
	}

	fields := map[string]any{"session_id": r.SessionID}
	if v, err := strconv.ParseFloat(r.Value, 64); err == nil {
		fields["value"] = v
	} else {
		fields["raw"] = r.Value
	}

	return write.NewPoint(measurementMeterValues, tags, fields, r.Timestamp)
}

func sessionPoint(s *transaction.Session) *write.Point {
	if s.EndTime == nil || s.MeterStop == nil {
		return nil
	}

	fields := map[string]any{
		"session_id":  s.ID,
		"meter_start": s.MeterStart,
		"meter_stop":  *s.MeterStop,
		"duration_s":  int64(s.EndTime.Sub(s.StartTime).Seconds()),
	}
	if s.EnergyKWh != nil {
		fields["energy_kwh"] = *s.EnergyKWh
	}

	tags := map[string]string{
		"station_id":   s.StationID,
		"connector_id": strconv.Itoa(s.ConnectorID),
	}
	if s.StopReason != "" {
		tags["stop_reason"] = string(s.StopReason)
	}
	return write.NewPoint(measurementSessions, tags, fields, *s.EndTime)
}
