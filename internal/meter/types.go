package meter

import "time"

// Defaults applied to sampled values that omit these fields.
const (
	DefaultMeasurand = "Energy.Active.Import.Register"
	DefaultUnit      = "Wh"
	DefaultContext   = "Sample.Periodic"
	DefaultFormat    = "Raw"
)

// Reading is one sampled value tied to a session.
type Reading struct {
	ID          int64     `json:"id"`
	SessionID   int       `json:"session_id"`
	StationID   string    `json:"station_id"`
	ConnectorID int       `json:"connector_id"`
	Timestamp   time.Time `json:"timestamp"`
	Measurand   string    `json:"measurand"`
	Value       string    `json:"value"`
	Unit        string    `json:"unit,omitempty"`
	Phase       string    `json:"phase,omitempty"`
	Context     string    `json:"context,omitempty"`
	Location    string    `json:"location,omitempty"`
	Format      string    `json:"format,omitempty"`
}
