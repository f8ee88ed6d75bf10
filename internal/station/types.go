package station

import (
	"fmt"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// maxIDLength bounds a charge point identity taken from the connection URL.
const maxIDLength = 64

// Station is a charge point known to the gateway.
type Station struct {
	ID              string     `json:"id"`
	Vendor          string     `json:"vendor"`
	Model           string     `json:"model"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`
	SerialNumber    string     `json:"serial_number,omitempty"`
	Online          bool       `json:"online"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Connector is one outlet of a station. Connector 0 is the station itself.
type Connector struct {
	StationID       string                    `json:"station_id"`
	ConnectorID     int                       `json:"connector_id"`
	Status          ocpp.ChargePointStatus    `json:"status"`
	ErrorCode       ocpp.ChargePointErrorCode `json:"error_code"`
	Info            string                    `json:"info,omitempty"`
	VendorErrorCode string                    `json:"vendor_error_code,omitempty"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// BootInfo is the descriptive part of a BootNotification.
type BootInfo struct {
	Vendor          string
	Model           string
	FirmwareVersion string
	SerialNumber    string
}

// BootLog records one BootNotification.
type BootLog struct {
	ID              string    `json:"id"`
	StationID       string    `json:"station_id"`
	Vendor          string    `json:"vendor"`
	Model           string    `json:"model"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	SerialNumber    string    `json:"serial_number,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ValidateID checks a charge point identity presented on connect.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidStation)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidStation, maxIDLength)
	}
	for _, r := range id {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: contains whitespace or control characters", ErrInvalidStation)
		}
	}
	return nil
}
