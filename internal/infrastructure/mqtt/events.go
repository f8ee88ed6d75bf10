package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// Publisher is the publishing side of Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventPublisher turns gateway domain events into MQTT messages. Publish
// failures are logged and never propagate into the OCPP exchange.
type EventPublisher struct {
	client Publisher
	topics Topics
	qos    byte
	logger Logger
	now    func() time.Time
}

// NewEventPublisher creates an EventPublisher writing under prefix.
func NewEventPublisher(client Publisher, prefix string, qos byte) *EventPublisher {
	return &EventPublisher{
		client: client,
		topics: NewTopics(prefix),
		qos:    qos,
		now:    time.Now,
	}
}

// SetLogger sets the logger for publish failures.
func (p *EventPublisher) SetLogger(logger Logger) {
	p.logger = logger
}

type stationStatusMessage struct {
	StationID string `json:"station_id"`
	Online    bool   `json:"online"`
	Timestamp string `json:"timestamp"`
}

type bootMessage struct {
	StationID       string `json:"station_id"`
	Vendor          string `json:"vendor"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Timestamp       string `json:"timestamp"`
}

type connectorMessage struct {
	StationID       string `json:"station_id"`
	ConnectorID     int    `json:"connector_id"`
	Status          string `json:"status"`
	ErrorCode       string `json:"error_code"`
	Info            string `json:"info,omitempty"`
	VendorErrorCode string `json:"vendor_error_code,omitempty"`
	Timestamp       string `json:"timestamp"`
}

type sessionMessage struct {
	Event       string   `json:"event"`
	SessionID   int      `json:"session_id"`
	StationID   string   `json:"station_id"`
	ConnectorID int      `json:"connector_id"`
	IDTag       string   `json:"id_tag"`
	StartTime   string   `json:"start_time"`
	MeterStart  int      `json:"meter_start"`
	EndTime     string   `json:"end_time,omitempty"`
	MeterStop   *int     `json:"meter_stop,omitempty"`
	EnergyKWh   *float64 `json:"energy_kwh,omitempty"`
	StopReason  string   `json:"stop_reason,omitempty"`
}

// StationOnline publishes the retained online flag.
func (p *EventPublisher) StationOnline(_ context.Context, stationID string) {
	p.publish(p.topics.StationStatus(stationID), true, stationStatusMessage{
		StationID: stationID,
		Online:    true,
		Timestamp: p.timestamp(),
	})
}

// StationOffline publishes the retained offline flag.
func (p *EventPublisher) StationOffline(_ context.Context, stationID string) {
	p.publish(p.topics.StationStatus(stationID), true, stationStatusMessage{
		StationID: stationID,
		Online:    false,
		Timestamp: p.timestamp(),
	})
}

// StationBooted publishes a boot notification.
func (p *EventPublisher) StationBooted(_ context.Context, stationID string, info station.BootInfo) {
	p.publish(p.topics.StationBoot(stationID), false, bootMessage{
		StationID:       stationID,
		Vendor:          info.Vendor,
		Model:           info.Model,
		FirmwareVersion: info.FirmwareVersion,
		SerialNumber:    info.SerialNumber,
		Timestamp:       p.timestamp(),
	})
}

// ConnectorStatus publishes the retained connector status.
func (p *EventPublisher) ConnectorStatus(_ context.Context, c *station.Connector) {
	ts := c.UpdatedAt
	if ts.IsZero() {
		ts = p.now()
	}
	p.publish(p.topics.ConnectorStatus(c.StationID, c.ConnectorID), true, connectorMessage{
		StationID:       c.StationID,
		ConnectorID:     c.ConnectorID,
		Status:          string(c.Status),
		ErrorCode:       string(c.ErrorCode),
		Info:            c.Info,
		VendorErrorCode: c.VendorErrorCode,
		Timestamp:       ts.UTC().Format(time.RFC3339),
	})
}

// SessionStarted publishes a session start.
func (p *EventPublisher) SessionStarted(_ context.Context, s *transaction.Session) {
	p.publish(p.topics.Session(s.StationID), false, sessionPayload("started", s))
}

// SessionStopped publishes a session stop with its consumed energy.
func (p *EventPublisher) SessionStopped(_ context.Context, s *transaction.Session) {
	p.publish(p.topics.Session(s.StationID), false, sessionPayload("stopped", s))
}

func sessionPayload(event string, s *transaction.Session) sessionMessage {
	msg := sessionMessage{
		Event:       event,
		SessionID:   s.ID,
		StationID:   s.StationID,
		ConnectorID: s.ConnectorID,
		IDTag:       s.IDTag,
		StartTime:   s.StartTime.UTC().Format(time.RFC3339),
		MeterStart:  s.MeterStart,
		MeterStop:   s.MeterStop,
		EnergyKWh:   s.EnergyKWh,
		StopReason:  string(s.StopReason),
	}
	if s.EndTime != nil {
		msg.EndTime = s.EndTime.UTC().Format(time.RFC3339)
	}
	return msg
}

func (p *EventPublisher) timestamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

func (p *EventPublisher) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err == nil {
		err = p.client.Publish(topic, payload, p.qos, retained)
	}
	if err != nil && p.logger != nil {
		p.logger.Warn("publishing event failed", "topic", topic, "error", err)
	}
}
