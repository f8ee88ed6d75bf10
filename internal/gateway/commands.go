package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Result statuses produced by the Commander itself. A successful command
// carries the charge point's own status instead.
const (
	ResultOffline  = "Offline"
	ResultRejected = "Rejected"
	ResultError    = "Error"
	ResultAccepted = "Accepted"
)

// Result is the outcome of a command sent to a charge point.
type Result struct {
	Status string
	Error  string

	// Fields holds the decoded response of a successful command.
	Fields map[string]any
}

// MarshalJSON flattens Fields next to status and error.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["status"] = r.Status
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

type command struct {
	action string
	build  func(args json.RawMessage) (any, error)
	decode func(raw json.RawMessage) (map[string]any, error)
}

// newCommand builds the table entry for one action. Arguments decode
// strictly into Req; the reply must decode into Resp.
func newCommand[Req, Resp any](action string) command {
	return command{
		action: action,
		build: func(args json.RawMessage) (any, error) {
			req := new(Req)
			if len(bytes.TrimSpace(args)) > 0 && !bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
				dec := json.NewDecoder(bytes.NewReader(args))
				dec.DisallowUnknownFields()
				if err := dec.Decode(req); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
			}
			if v, ok := any(req).(ocpp.Validator); ok {
				if err := v.Validate(); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
			}
			return req, nil
		},
		decode: func(raw json.RawMessage) (map[string]any, error) {
			resp := new(Resp)
			if err := json.Unmarshal(raw, resp); err != nil {
				return nil, fmt.Errorf("decoding %s response: %w", action, err)
			}
			normalised, err := json.Marshal(resp)
			if err != nil {
				return nil, err
			}
			fields := make(map[string]any)
			if err := json.Unmarshal(normalised, &fields); err != nil {
				return nil, err
			}
			return fields, nil
		},
	}
}

var commandTable = map[string]command{
	ocpp.ActionRemoteStartTransaction: newCommand[ocpp.RemoteStartTransactionRequest, ocpp.StatusResponse](ocpp.ActionRemoteStartTransaction),
	ocpp.ActionRemoteStopTransaction:  newCommand[ocpp.RemoteStopTransactionRequest, ocpp.StatusResponse](ocpp.ActionRemoteStopTransaction),
	ocpp.ActionReset:                  newCommand[ocpp.ResetRequest, ocpp.StatusResponse](ocpp.ActionReset),
	ocpp.ActionUnlockConnector:        newCommand[ocpp.UnlockConnectorRequest, ocpp.StatusResponse](ocpp.ActionUnlockConnector),
	ocpp.ActionChangeConfiguration:    newCommand[ocpp.ChangeConfigurationRequest, ocpp.StatusResponse](ocpp.ActionChangeConfiguration),
	ocpp.ActionGetConfiguration:       newCommand[ocpp.GetConfigurationRequest, ocpp.GetConfigurationResponse](ocpp.ActionGetConfiguration),
	ocpp.ActionClearCache:             newCommand[ocpp.ClearCacheRequest, ocpp.StatusResponse](ocpp.ActionClearCache),
	ocpp.ActionChangeAvailability:     newCommand[ocpp.ChangeAvailabilityRequest, ocpp.StatusResponse](ocpp.ActionChangeAvailability),
	ocpp.ActionGetDiagnostics:         newCommand[ocpp.GetDiagnosticsRequest, ocpp.GetDiagnosticsResponse](ocpp.ActionGetDiagnostics),
	ocpp.ActionUpdateFirmware:         newCommand[ocpp.UpdateFirmwareRequest, struct{}](ocpp.ActionUpdateFirmware),
	ocpp.ActionReserveNow:             newCommand[ocpp.ReserveNowRequest, ocpp.StatusResponse](ocpp.ActionReserveNow),
	ocpp.ActionCancelReservation:      newCommand[ocpp.CancelReservationRequest, ocpp.StatusResponse](ocpp.ActionCancelReservation),
	ocpp.ActionSetChargingProfile:     newCommand[ocpp.SetChargingProfileRequest, ocpp.StatusResponse](ocpp.ActionSetChargingProfile),
	ocpp.ActionGetCompositeSchedule:   newCommand[ocpp.GetCompositeScheduleRequest, ocpp.GetCompositeScheduleResponse](ocpp.ActionGetCompositeSchedule),
	ocpp.ActionClearChargingProfile:   newCommand[ocpp.ClearChargingProfileRequest, ocpp.StatusResponse](ocpp.ActionClearChargingProfile),
	ocpp.ActionTriggerMessage:         newCommand[ocpp.TriggerMessageRequest, ocpp.StatusResponse](ocpp.ActionTriggerMessage),
	ocpp.ActionGetLocalListVersion:    newCommand[ocpp.GetLocalListVersionRequest, ocpp.GetLocalListVersionResponse](ocpp.ActionGetLocalListVersion),
	ocpp.ActionSendLocalList:          newCommand[ocpp.SendLocalListRequest, ocpp.StatusResponse](ocpp.ActionSendLocalList),
}

// Commands returns the names of every supported command, sorted.
func Commands() []string {
	out := make([]string, 0, len(commandTable))
	for name := range commandTable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Commander sends operator commands to connected charge points.
type Commander struct {
	registry *Registry
	logger   Logger
}

// NewCommander creates a Commander over registry.
func NewCommander(registry *Registry) *Commander {
	return &Commander{registry: registry, logger: noopLogger{}}
}

// SetLogger sets the logger for the commander.
func (c *Commander) SetLogger(logger Logger) {
	c.logger = logger
}

// Send issues command to stationID and waits for the reply. It never
// returns an error; every failure is folded into the Result.
func (c *Commander) Send(ctx context.Context, stationID, name string, args json.RawMessage) Result {
	conn := c.registry.Lookup(stationID)
	if conn == nil {
		return Result{Status: ResultOffline}
	}

	cmd, ok := commandTable[name]
	if !ok {
		return Result{Status: ResultRejected, Error: "Unknown command"}
	}

	payload, err := cmd.build(args)
	if err != nil {
		return Result{Status: ResultRejected, Error: err.Error()}
	}

	c.logger.Info("sending command", "station_id", stationID, "command", name)
	raw, err := conn.Call(ctx, cmd.action, payload)
	if err != nil {
		var ce *ocpp.CallError
		if errors.As(err, &ce) {
			c.logger.Warn("command answered with error",
				"station_id", stationID, "command", name, "code", ce.Code, "description", ce.Description)
			return Result{Status: ResultError, Error: ce.Error()}
		}
		c.logger.Warn("command failed", "station_id", stationID, "command", name, "error", err)
		return Result{Status: ResultError, Error: err.Error()}
	}

	fields, err := cmd.decode(raw)
	if err != nil {
		c.logger.Warn("undecodable command response", "station_id", stationID, "command", name, "error", err)
		return Result{Status: ResultError, Error: err.Error()}
	}

	status := ResultAccepted
	if s, ok := fields["status"].(string); ok && s != "" {
		status = s
	}
	delete(fields, "status")
	c.logger.Info("command answered", "station_id", stationID, "command", name, "status", status)
	return Result{Status: status, Fields: fields}
}
