package transaction

import (
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

const whPerKWh = 1000.0

// Session is one metered charging transaction.
type Session struct {
	ID            int         `json:"id"`
	StationID     string      `json:"station_id"`
	ConnectorID   int         `json:"connector_id"`
	IDTag         string      `json:"id_tag"`
	ReservationID *int        `json:"reservation_id,omitempty"`
	StartTime     time.Time   `json:"start_time"`
	MeterStart    int         `json:"meter_start"`
	EndTime       *time.Time  `json:"end_time,omitempty"`
	MeterStop     *int        `json:"meter_stop,omitempty"`
	EnergyKWh     *float64    `json:"energy_kwh,omitempty"`
	StopReason    ocpp.Reason `json:"stop_reason,omitempty"`
}

// Open reports whether the session has not been closed.
func (s *Session) Open() bool {
	return s.EndTime == nil
}

// close fills the closing fields. Energy is left nil when the meter went
// backwards.
func (s *Session) close(at time.Time, meterStop int, reason ocpp.Reason) {
	end := at
	stop := meterStop
	s.EndTime = &end
	s.MeterStop = &stop
	s.StopReason = reason
	s.EnergyKWh = ConsumedKWh(s.MeterStart, meterStop)
}

// ConsumedKWh converts a Wh meter delta to kWh. It returns nil when stop is
// lower than start.
func ConsumedKWh(meterStart, meterStop int) *float64 {
	if meterStop < meterStart {
		return nil
	}
	kwh := float64(meterStop-meterStart) / whPerKWh
	return &kwh
}

// StartRequest carries the fields of a StartTransaction.
type StartRequest struct {
	StationID     string
	ConnectorID   int
	IDTag         string
	MeterStart    int
	ReservationID *int
	Timestamp     time.Time
}

// StartResult is the answer to a StartTransaction.
type StartResult struct {
	SessionID int
	IDTagInfo ocpp.IDTagInfo
}

// StopRequest carries the fields of a StopTransaction.
type StopRequest struct {
	StationID       string
	SessionID       int
	IDTag           string
	MeterStop       int
	Timestamp       time.Time
	Reason          ocpp.Reason
	TransactionData []ocpp.MeterValue
}
