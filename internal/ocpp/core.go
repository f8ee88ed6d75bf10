package ocpp

// Inbound actions a charge point may initiate.
const (
	ActionBootNotification   = "BootNotification"
	ActionHeartbeat          = "Heartbeat"
	ActionAuthorize          = "Authorize"
	ActionStatusNotification = "StatusNotification"
	ActionMeterValues        = "MeterValues"
	ActionStartTransaction   = "StartTransaction"
	ActionStopTransaction    = "StopTransaction"
	ActionDataTransfer       = "DataTransfer"
)

// Field size limits from the OCPP 1.6 JSON schemas.
const (
	idTokenMaxLen   = 20
	string20MaxLen  = 20
	string50MaxLen  = 50
	string255MaxLen = 255
	string500MaxLen = 500
)

// AuthorizationStatus is the outcome of an idTag check.
type AuthorizationStatus string

const (
	AuthorizationAccepted     AuthorizationStatus = "Accepted"
	AuthorizationBlocked      AuthorizationStatus = "Blocked"
	AuthorizationExpired      AuthorizationStatus = "Expired"
	AuthorizationInvalid      AuthorizationStatus = "Invalid"
	AuthorizationConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

// Valid reports whether s is one of the defined statuses.
func (s AuthorizationStatus) Valid() bool {
	switch s {
	case AuthorizationAccepted, AuthorizationBlocked, AuthorizationExpired,
		AuthorizationInvalid, AuthorizationConcurrentTx:
		return true
	}
	return false
}

// IDTagInfo is the status envelope returned for an idTag.
type IDTagInfo struct {
	Status      AuthorizationStatus `json:"status"`
	ExpiryDate  *DateTime           `json:"expiryDate,omitempty"`
	ParentIDTag string              `json:"parentIdTag,omitempty"`
}

// ChargePointStatus is a connector state from StatusNotification.
type ChargePointStatus string

const (
	StatusAvailable     ChargePointStatus = "Available"
	StatusPreparing     ChargePointStatus = "Preparing"
	StatusCharging      ChargePointStatus = "Charging"
	StatusSuspendedEVSE ChargePointStatus = "SuspendedEVSE"
	StatusSuspendedEV   ChargePointStatus = "SuspendedEV"
	StatusFinishing     ChargePointStatus = "Finishing"
	StatusReserved      ChargePointStatus = "Reserved"
	StatusUnavailable   ChargePointStatus = "Unavailable"
	StatusFaulted       ChargePointStatus = "Faulted"

	// StatusUnknown is not sent by charge points. The gateway records it for
	// every connector of a station that is offline.
	StatusUnknown ChargePointStatus = "Unknown"
)

var reportableStatuses = []ChargePointStatus{
	StatusAvailable, StatusPreparing, StatusCharging, StatusSuspendedEVSE, StatusSuspendedEV,
	StatusFinishing, StatusReserved, StatusUnavailable, StatusFaulted,
}

// ChargePointErrorCode accompanies a StatusNotification.
type ChargePointErrorCode string

const (
	ErrorCodeNoError              ChargePointErrorCode = "NoError"
	ErrorCodeConnectorLockFailure ChargePointErrorCode = "ConnectorLockFailure"
	ErrorCodeEVCommunicationError ChargePointErrorCode = "EVCommunicationError"
	ErrorCodeGroundFailure        ChargePointErrorCode = "GroundFailure"
	ErrorCodeHighTemperature      ChargePointErrorCode = "HighTemperature"
	ErrorCodeInternalError        ChargePointErrorCode = "InternalError"
	ErrorCodeLocalListConflict    ChargePointErrorCode = "LocalListConflict"
	ErrorCodeOtherError           ChargePointErrorCode = "OtherError"
	ErrorCodeOverCurrentFailure   ChargePointErrorCode = "OverCurrentFailure"
	ErrorCodeOverVoltage          ChargePointErrorCode = "OverVoltage"
	ErrorCodePowerMeterFailure    ChargePointErrorCode = "PowerMeterFailure"
	ErrorCodePowerSwitchFailure   ChargePointErrorCode = "PowerSwitchFailure"
	ErrorCodeReaderFailure        ChargePointErrorCode = "ReaderFailure"
	ErrorCodeResetFailure         ChargePointErrorCode = "ResetFailure"
	ErrorCodeUnderVoltage         ChargePointErrorCode = "UnderVoltage"
	ErrorCodeWeakSignal           ChargePointErrorCode = "WeakSignal"
)

// RegistrationStatus answers a BootNotification.
type RegistrationStatus string

const (
	RegistrationAccepted RegistrationStatus = "Accepted"
	RegistrationPending  RegistrationStatus = "Pending"
	RegistrationRejected RegistrationStatus = "Rejected"
)

// Reason explains why a transaction stopped.
type Reason string

const (
	ReasonEmergencyStop  Reason = "EmergencyStop"
	ReasonEVDisconnected Reason = "EVDisconnected"
	ReasonHardReset      Reason = "HardReset"
	ReasonLocal          Reason = "Local"
	ReasonOther          Reason = "Other"
	ReasonPowerLoss      Reason = "PowerLoss"
	ReasonReboot         Reason = "Reboot"
	ReasonRemote         Reason = "Remote"
	ReasonSoftReset      Reason = "SoftReset"
	ReasonUnlockCommand  Reason = "UnlockCommand"
	ReasonDeAuthorized   Reason = "DeAuthorized"
)

// BootNotificationRequest is sent once after a charge point (re)starts.
type BootNotificationRequest struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

// Validate implements Validator.
func (r *BootNotificationRequest) Validate() error {
	if r.ChargePointVendor == "" {
		return missing("chargePointVendor")
	}
	if r.ChargePointModel == "" {
		return missing("chargePointModel")
	}
	if err := maxLen("chargePointVendor", r.ChargePointVendor, string20MaxLen); err != nil {
		return err
	}
	if err := maxLen("chargePointModel", r.ChargePointModel, string20MaxLen); err != nil {
		return err
	}
	return maxLen("firmwareVersion", r.FirmwareVersion, string50MaxLen)
}

// SerialNumber returns the charge point serial, falling back to the
// charge box serial.
func (r *BootNotificationRequest) SerialNumber() string {
	if r.ChargePointSerialNumber != "" {
		return r.ChargePointSerialNumber
	}
	return r.ChargeBoxSerialNumber
}

// BootNotificationResponse answers a BootNotification.
type BootNotificationResponse struct {
	Status      RegistrationStatus `json:"status"`
	CurrentTime DateTime           `json:"currentTime"`
	Interval    int                `json:"interval"`
}

// HeartbeatRequest has no fields.
type HeartbeatRequest struct{}

// HeartbeatResponse carries the central system clock.
type HeartbeatResponse struct {
	CurrentTime DateTime `json:"currentTime"`
}

// AuthorizeRequest asks whether an idTag may charge.
type AuthorizeRequest struct {
	IDTag string `json:"idTag"`
}

// Validate implements Validator.
func (r *AuthorizeRequest) Validate() error {
	if r.IDTag == "" {
		return missing("idTag")
	}
	return maxLen("idTag", r.IDTag, idTokenMaxLen)
}

// AuthorizeResponse answers an Authorize.
type AuthorizeResponse struct {
	IDTagInfo IDTagInfo `json:"idTagInfo"`
}

// StatusNotificationRequest reports a connector state change. Connector 0
// addresses the charge point as a whole.
type StatusNotificationRequest struct {
	ConnectorID     int                  `json:"connectorId"`
	ErrorCode       ChargePointErrorCode `json:"errorCode"`
	Info            string               `json:"info,omitempty"`
	Status          ChargePointStatus    `json:"status"`
	Timestamp       *DateTime            `json:"timestamp,omitempty"`
	VendorID        string               `json:"vendorId,omitempty"`
	VendorErrorCode string               `json:"vendorErrorCode,omitempty"`
}

// Validate implements Validator.
func (r *StatusNotificationRequest) Validate() error {
	if r.ConnectorID < 0 {
		return invalid("connectorId", "must not be negative")
	}
	if r.Status == "" {
		return missing("status")
	}
	if err := oneOf("status", r.Status, reportableStatuses...); err != nil {
		return err
	}
	return maxLen("info", r.Info, string50MaxLen)
}

// StatusNotificationResponse is empty.
type StatusNotificationResponse struct{}

// SampledValue is one measurement inside a MeterValue.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Format    string `json:"format,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Location  string `json:"location,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// MeterValue groups the samples taken at one instant.
type MeterValue struct {
	Timestamp    DateTime       `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// MeterValuesRequest carries periodic or clock-aligned readings.
type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int         `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

// Validate implements Validator.
func (r *MeterValuesRequest) Validate() error {
	if r.ConnectorID < 0 {
		return invalid("connectorId", "must not be negative")
	}
	if len(r.MeterValue) == 0 {
		return missing("meterValue")
	}
	return nil
}

// MeterValuesResponse is empty.
type MeterValuesResponse struct{}

// StartTransactionRequest opens a metered session.
type StartTransactionRequest struct {
	ConnectorID   int      `json:"connectorId"`
	IDTag         string   `json:"idTag"`
	MeterStart    int      `json:"meterStart"`
	ReservationID *int     `json:"reservationId,omitempty"`
	Timestamp     DateTime `json:"timestamp"`
}

// Validate implements Validator.
func (r *StartTransactionRequest) Validate() error {
	if r.ConnectorID <= 0 {
		return invalid("connectorId", "must be greater than 0")
	}
	if r.IDTag == "" {
		return missing("idTag")
	}
	if err := maxLen("idTag", r.IDTag, idTokenMaxLen); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		return missing("timestamp")
	}
	return nil
}

// StartTransactionResponse answers a StartTransaction.
type StartTransactionResponse struct {
	IDTagInfo     IDTagInfo `json:"idTagInfo"`
	TransactionID int       `json:"transactionId"`
}

// StopTransactionRequest closes a metered session.
type StopTransactionRequest struct {
	IDTag           string       `json:"idTag,omitempty"`
	MeterStop       int          `json:"meterStop"`
	Timestamp       DateTime     `json:"timestamp"`
	TransactionID   int          `json:"transactionId"`
	Reason          Reason       `json:"reason,omitempty"`
	TransactionData []MeterValue `json:"transactionData,omitempty"`
}

// Validate implements Validator.
func (r *StopTransactionRequest) Validate() error {
	if r.Timestamp.IsZero() {
		return missing("timestamp")
	}
	return maxLen("idTag", r.IDTag, idTokenMaxLen)
}

// StopTransactionResponse answers a StopTransaction.
type StopTransactionResponse struct {
	IDTagInfo *IDTagInfo `json:"idTagInfo,omitempty"`
}

// DataTransferStatus answers a DataTransfer.
type DataTransferStatus string

const (
	DataTransferAccepted         DataTransferStatus = "Accepted"
	DataTransferRejected         DataTransferStatus = "Rejected"
	DataTransferUnknownMessageID DataTransferStatus = "UnknownMessageID"
	DataTransferUnknownVendorID  DataTransferStatus = "UnknownVendorID"
)

// DataTransferRequest carries vendor-specific data.
type DataTransferRequest struct {
	VendorID  string `json:"vendorId"`
	MessageID string `json:"messageId,omitempty"`
	Data      string `json:"data,omitempty"`
}

// Validate implements Validator.
func (r *DataTransferRequest) Validate() error {
	if r.VendorID == "" {
		return missing("vendorId")
	}
	if err := maxLen("vendorId", r.VendorID, string255MaxLen); err != nil {
		return err
	}
	return maxLen("messageId", r.MessageID, string50MaxLen)
}

// DataTransferResponse answers a DataTransfer.
type DataTransferResponse struct {
	Status DataTransferStatus `json:"status"`
	Data   string             `json:"data,omitempty"`
}
