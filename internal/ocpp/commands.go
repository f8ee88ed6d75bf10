package ocpp

import "fmt"

// Outbound actions the central system may send to a charge point.
const (
	ActionRemoteStartTransaction = "RemoteStartTransaction"
	ActionRemoteStopTransaction  = "RemoteStopTransaction"
	ActionReset                  = "Reset"
	ActionUnlockConnector        = "UnlockConnector"
	ActionChangeConfiguration    = "ChangeConfiguration"
	ActionGetConfiguration       = "GetConfiguration"
	ActionClearCache             = "ClearCache"
	ActionChangeAvailability     = "ChangeAvailability"
	ActionGetDiagnostics         = "GetDiagnostics"
	ActionUpdateFirmware         = "UpdateFirmware"
	ActionReserveNow             = "ReserveNow"
	ActionCancelReservation      = "CancelReservation"
	ActionSetChargingProfile     = "SetChargingProfile"
	ActionGetCompositeSchedule   = "GetCompositeSchedule"
	ActionClearChargingProfile   = "ClearChargingProfile"
	ActionTriggerMessage         = "TriggerMessage"
	ActionGetLocalListVersion    = "GetLocalListVersion"
	ActionSendLocalList          = "SendLocalList"
)

// ChargingProfilePurpose, ChargingProfileKind and friends are the enums of
// the Smart Charging profile.
type (
	ChargingProfilePurpose string
	ChargingProfileKind    string
	RecurrencyKind         string
	ChargingRateUnit       string
)

const (
	PurposeChargePointMaxProfile ChargingProfilePurpose = "ChargePointMaxProfile"
	PurposeTxDefaultProfile      ChargingProfilePurpose = "TxDefaultProfile"
	PurposeTxProfile             ChargingProfilePurpose = "TxProfile"

	KindAbsolute  ChargingProfileKind = "Absolute"
	KindRecurring ChargingProfileKind = "Recurring"
	KindRelative  ChargingProfileKind = "Relative"

	RecurrencyDaily  RecurrencyKind = "Daily"
	RecurrencyWeekly RecurrencyKind = "Weekly"

	RateUnitW ChargingRateUnit = "W"
	RateUnitA ChargingRateUnit = "A"
)

// ChargingSchedulePeriod is one step of a ChargingSchedule.
type ChargingSchedulePeriod struct {
	StartPeriod  int     `json:"startPeriod"`
	Limit        float64 `json:"limit"`
	NumberPhases *int    `json:"numberPhases,omitempty"`
}

// ChargingSchedule is the power or current limit over time.
type ChargingSchedule struct {
	Duration               *int                     `json:"duration,omitempty"`
	StartSchedule          *DateTime                `json:"startSchedule,omitempty"`
	ChargingRateUnit       ChargingRateUnit         `json:"chargingRateUnit"`
	ChargingSchedulePeriod []ChargingSchedulePeriod `json:"chargingSchedulePeriod"`
	MinChargingRate        *float64                 `json:"minChargingRate,omitempty"`
}

func (s *ChargingSchedule) validate(prefix string) error {
	if err := oneOf(prefix+".chargingRateUnit", s.ChargingRateUnit, RateUnitW, RateUnitA); err != nil {
		return err
	}
	if len(s.ChargingSchedulePeriod) == 0 {
		return missing(prefix + ".chargingSchedulePeriod")
	}
	return nil
}

// ChargingProfile is a Smart Charging profile.
type ChargingProfile struct {
	ChargingProfileID      int                    `json:"chargingProfileId"`
	TransactionID          *int                   `json:"transactionId,omitempty"`
	StackLevel             int                    `json:"stackLevel"`
	ChargingProfilePurpose ChargingProfilePurpose `json:"chargingProfilePurpose"`
	ChargingProfileKind    ChargingProfileKind    `json:"chargingProfileKind"`
	RecurrencyKind         RecurrencyKind         `json:"recurrencyKind,omitempty"`
	ValidFrom              *DateTime              `json:"validFrom,omitempty"`
	ValidTo                *DateTime              `json:"validTo,omitempty"`
	ChargingSchedule       ChargingSchedule       `json:"chargingSchedule"`
}

func (p *ChargingProfile) validate(prefix string) error {
	if p.StackLevel < 0 {
		return invalid(prefix+".stackLevel", "must not be negative")
	}
	if err := oneOf(prefix+".chargingProfilePurpose", p.ChargingProfilePurpose,
		PurposeChargePointMaxProfile, PurposeTxDefaultProfile, PurposeTxProfile); err != nil {
		return err
	}
	if err := oneOf(prefix+".chargingProfileKind", p.ChargingProfileKind,
		KindAbsolute, KindRecurring, KindRelative); err != nil {
		return err
	}
	if p.ChargingProfileKind == KindRecurring {
		if err := oneOf(prefix+".recurrencyKind", p.RecurrencyKind, RecurrencyDaily, RecurrencyWeekly); err != nil {
			return err
		}
	}
	return p.ChargingSchedule.validate(prefix + ".chargingSchedule")
}

// StatusResponse is the common {status} answer most commands return.
type StatusResponse struct {
	Status string `json:"status"`
}

// RemoteStartTransactionRequest asks a charge point to start charging.
type RemoteStartTransactionRequest struct {
	ConnectorID     *int             `json:"connectorId,omitempty"`
	IDTag           string           `json:"idTag"`
	ChargingProfile *ChargingProfile `json:"chargingProfile,omitempty"`
}

// Validate implements Validator.
func (r *RemoteStartTransactionRequest) Validate() error {
	if r.IDTag == "" {
		return missing("idTag")
	}
	if err := maxLen("idTag", r.IDTag, idTokenMaxLen); err != nil {
		return err
	}
	if r.ConnectorID != nil && *r.ConnectorID <= 0 {
		return invalid("connectorId", "must be greater than 0")
	}
	if r.ChargingProfile != nil {
		if r.ChargingProfile.ChargingProfilePurpose != PurposeTxProfile {
			return invalid("chargingProfile.chargingProfilePurpose", "must be TxProfile")
		}
		return r.ChargingProfile.validate("chargingProfile")
	}
	return nil
}

// RemoteStopTransactionRequest asks a charge point to stop a session.
type RemoteStopTransactionRequest struct {
	TransactionID *int `json:"transactionId"`
}

// Validate implements Validator.
func (r *RemoteStopTransactionRequest) Validate() error {
	if r.TransactionID == nil {
		return missing("transactionId")
	}
	return nil
}

// ResetType selects a hard or soft reset.
type ResetType string

const (
	ResetHard ResetType = "Hard"
	ResetSoft ResetType = "Soft"
)

// ResetRequest asks a charge point to reboot.
type ResetRequest struct {
	Type ResetType `json:"type"`
}

// Validate implements Validator.
func (r *ResetRequest) Validate() error {
	if r.Type == "" {
		return missing("type")
	}
	return oneOf("type", r.Type, ResetHard, ResetSoft)
}

// UnlockConnectorRequest asks a charge point to release a cable.
type UnlockConnectorRequest struct {
	ConnectorID *int `json:"connectorId"`
}

// Validate implements Validator.
func (r *UnlockConnectorRequest) Validate() error {
	if r.ConnectorID == nil {
		return missing("connectorId")
	}
	if *r.ConnectorID <= 0 {
		return invalid("connectorId", "must be greater than 0")
	}
	return nil
}

// ChangeConfigurationRequest sets one configuration key.
type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Validate implements Validator.
func (r *ChangeConfigurationRequest) Validate() error {
	if r.Key == "" {
		return missing("key")
	}
	if err := maxLen("key", r.Key, string50MaxLen); err != nil {
		return err
	}
	return maxLen("value", r.Value, string500MaxLen)
}

// GetConfigurationRequest reads configuration keys; an empty list reads all.
type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty"`
}

// Validate implements Validator.
func (r *GetConfigurationRequest) Validate() error {
	for i, k := range r.Key {
		if err := maxLen(fmt.Sprintf("key[%d]", i), k, string50MaxLen); err != nil {
			return err
		}
	}
	return nil
}

// KeyValue is one configuration entry.
type KeyValue struct {
	Key      string  `json:"key"`
	Readonly bool    `json:"readonly"`
	Value    *string `json:"value,omitempty"`
}

// GetConfigurationResponse answers a GetConfiguration.
type GetConfigurationResponse struct {
	ConfigurationKey []KeyValue `json:"configurationKey,omitempty"`
	UnknownKey       []string   `json:"unknownKey,omitempty"`
}

// ClearCacheRequest has no fields.
type ClearCacheRequest struct{}

// AvailabilityType selects operative or inoperative.
type AvailabilityType string

const (
	AvailabilityInoperative AvailabilityType = "Inoperative"
	AvailabilityOperative   AvailabilityType = "Operative"
)

// ChangeAvailabilityRequest toggles a connector, or the whole charge point
// when ConnectorID is 0.
type ChangeAvailabilityRequest struct {
	ConnectorID *int             `json:"connectorId"`
	Type        AvailabilityType `json:"type"`
}

// Validate implements Validator.
func (r *ChangeAvailabilityRequest) Validate() error {
	if r.ConnectorID == nil {
		return missing("connectorId")
	}
	if *r.ConnectorID < 0 {
		return invalid("connectorId", "must not be negative")
	}
	if r.Type == "" {
		return missing("type")
	}
	return oneOf("type", r.Type, AvailabilityInoperative, AvailabilityOperative)
}

// GetDiagnosticsRequest asks a charge point to upload a diagnostics file.
type GetDiagnosticsRequest struct {
	Location      string    `json:"location"`
	Retries       *int      `json:"retries,omitempty"`
	RetryInterval *int      `json:"retryInterval,omitempty"`
	StartTime     *DateTime `json:"startTime,omitempty"`
	StopTime      *DateTime `json:"stopTime,omitempty"`
}

// Validate implements Validator.
func (r *GetDiagnosticsRequest) Validate() error {
	if r.Location == "" {
		return missing("location")
	}
	if r.StartTime != nil && r.StopTime != nil && r.StopTime.Before(r.StartTime.Time) {
		return invalid("stopTime", "must not be before startTime")
	}
	return nil
}

// GetDiagnosticsResponse names the file being uploaded, if any.
type GetDiagnosticsResponse struct {
	FileName string `json:"fileName,omitempty"`
}

// UpdateFirmwareRequest asks a charge point to fetch and install firmware.
type UpdateFirmwareRequest struct {
	Location      string    `json:"location"`
	Retries       *int      `json:"retries,omitempty"`
	RetrieveDate  *DateTime `json:"retrieveDate"`
	RetryInterval *int      `json:"retryInterval,omitempty"`
}

// Validate implements Validator.
func (r *UpdateFirmwareRequest) Validate() error {
	if r.Location == "" {
		return missing("location")
	}
	if r.RetrieveDate == nil {
		return missing("retrieveDate")
	}
	return nil
}

// ReserveNowRequest reserves a connector for an idTag.
type ReserveNowRequest struct {
	ConnectorID   *int      `json:"connectorId"`
	ExpiryDate    *DateTime `json:"expiryDate"`
	IDTag         string    `json:"idTag"`
	ParentIDTag   string    `json:"parentIdTag,omitempty"`
	ReservationID *int      `json:"reservationId"`
}

// Validate implements Validator.
func (r *ReserveNowRequest) Validate() error {
	switch {
	case r.ConnectorID == nil:
		return missing("connectorId")
	case *r.ConnectorID < 0:
		return invalid("connectorId", "must not be negative")
	case r.ExpiryDate == nil:
		return missing("expiryDate")
	case r.IDTag == "":
		return missing("idTag")
	case r.ReservationID == nil:
		return missing("reservationId")
	}
	return maxLen("idTag", r.IDTag, idTokenMaxLen)
}

// CancelReservationRequest cancels a reservation.
type CancelReservationRequest struct {
	ReservationID *int `json:"reservationId"`
}

// Validate implements Validator.
func (r *CancelReservationRequest) Validate() error {
	if r.ReservationID == nil {
		return missing("reservationId")
	}
	return nil
}

// SetChargingProfileRequest installs a charging profile on a connector.
type SetChargingProfileRequest struct {
	ConnectorID        *int             `json:"connectorId"`
	CsChargingProfiles *ChargingProfile `json:"csChargingProfiles"`
}

// Validate implements Validator.
func (r *SetChargingProfileRequest) Validate() error {
	if r.ConnectorID == nil {
		return missing("connectorId")
	}
	if *r.ConnectorID < 0 {
		return invalid("connectorId", "must not be negative")
	}
	if r.CsChargingProfiles == nil {
		return missing("csChargingProfiles")
	}
	return r.CsChargingProfiles.validate("csChargingProfiles")
}

// GetCompositeScheduleRequest asks for the effective schedule of a connector.
type GetCompositeScheduleRequest struct {
	ConnectorID      *int             `json:"connectorId"`
	Duration         *int             `json:"duration"`
	ChargingRateUnit ChargingRateUnit `json:"chargingRateUnit,omitempty"`
}

// Validate implements Validator.
func (r *GetCompositeScheduleRequest) Validate() error {
	switch {
	case r.ConnectorID == nil:
		return missing("connectorId")
	case *r.ConnectorID < 0:
		return invalid("connectorId", "must not be negative")
	case r.Duration == nil:
		return missing("duration")
	case *r.Duration <= 0:
		return invalid("duration", "must be greater than 0")
	}
	if r.ChargingRateUnit != "" {
		return oneOf("chargingRateUnit", r.ChargingRateUnit, RateUnitW, RateUnitA)
	}
	return nil
}

// GetCompositeScheduleResponse answers a GetCompositeSchedule.
type GetCompositeScheduleResponse struct {
	Status           string            `json:"status"`
	ConnectorID      *int              `json:"connectorId,omitempty"`
	ScheduleStart    *DateTime         `json:"scheduleStart,omitempty"`
	ChargingSchedule *ChargingSchedule `json:"chargingSchedule,omitempty"`
}

// ClearChargingProfileRequest removes profiles matching every set filter.
type ClearChargingProfileRequest struct {
	ID                     *int                   `json:"id,omitempty"`
	ConnectorID            *int                   `json:"connectorId,omitempty"`
	ChargingProfilePurpose ChargingProfilePurpose `json:"chargingProfilePurpose,omitempty"`
	StackLevel             *int                   `json:"stackLevel,omitempty"`
}

// Validate implements Validator.
func (r *ClearChargingProfileRequest) Validate() error {
	if r.ChargingProfilePurpose != "" {
		return oneOf("chargingProfilePurpose", r.ChargingProfilePurpose,
			PurposeChargePointMaxProfile, PurposeTxDefaultProfile, PurposeTxProfile)
	}
	return nil
}

// MessageTrigger names the message a TriggerMessage asks for.
type MessageTrigger string

const (
	TriggerBootNotification              MessageTrigger = "BootNotification"
	TriggerDiagnosticsStatusNotification MessageTrigger = "DiagnosticsStatusNotification"
	TriggerFirmwareStatusNotification    MessageTrigger = "FirmwareStatusNotification"
	TriggerHeartbeat                     MessageTrigger = "Heartbeat"
	TriggerMeterValues                   MessageTrigger = "MeterValues"
	TriggerStatusNotification            MessageTrigger = "StatusNotification"
)

// TriggerMessageRequest asks a charge point to send a message now.
type TriggerMessageRequest struct {
	RequestedMessage MessageTrigger `json:"requestedMessage"`
	ConnectorID      *int           `json:"connectorId,omitempty"`
}

// Validate implements Validator.
func (r *TriggerMessageRequest) Validate() error {
	if r.RequestedMessage == "" {
		return missing("requestedMessage")
	}
	if r.ConnectorID != nil && *r.ConnectorID <= 0 {
		return invalid("connectorId", "must be greater than 0")
	}
	return oneOf("requestedMessage", r.RequestedMessage,
		TriggerBootNotification, TriggerDiagnosticsStatusNotification, TriggerFirmwareStatusNotification,
		TriggerHeartbeat, TriggerMeterValues, TriggerStatusNotification)
}

// GetLocalListVersionRequest has no fields.
type GetLocalListVersionRequest struct{}

// GetLocalListVersionResponse reports the local authorization list version.
type GetLocalListVersionResponse struct {
	ListVersion int `json:"listVersion"`
}

// UpdateType selects a full or differential local list update.
type UpdateType string

const (
	UpdateDifferential UpdateType = "Differential"
	UpdateFull         UpdateType = "Full"
)

// AuthorizationData is one local authorization list entry.
type AuthorizationData struct {
	IDTag     string     `json:"idTag"`
	IDTagInfo *IDTagInfo `json:"idTagInfo,omitempty"`
}

// SendLocalListRequest replaces or patches the local authorization list.
type SendLocalListRequest struct {
	ListVersion            *int                `json:"listVersion"`
	LocalAuthorizationList []AuthorizationData `json:"localAuthorizationList,omitempty"`
	UpdateType             UpdateType          `json:"updateType"`
}

// Validate implements Validator.
func (r *SendLocalListRequest) Validate() error {
	if r.ListVersion == nil {
		return missing("listVersion")
	}
	if r.UpdateType == "" {
		return missing("updateType")
	}
	if err := oneOf("updateType", r.UpdateType, UpdateDifferential, UpdateFull); err != nil {
		return err
	}
	for i, entry := range r.LocalAuthorizationList {
		field := fmt.Sprintf("localAuthorizationList[%d]", i)
		if entry.IDTag == "" {
			return missing(field + ".idTag")
		}
		if entry.IDTagInfo != nil && !entry.IDTagInfo.Status.Valid() {
			return invalid(field+".idTagInfo.status", "is not a valid authorization status")
		}
	}
	return nil
}
