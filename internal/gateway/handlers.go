package gateway

import (
	"context"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// StationStore is the part of the station repository the handlers write.
type StationStore interface {
	UpsertBoot(ctx context.Context, id string, info station.BootInfo, at time.Time) error
	AppendBootLog(ctx context.Context, entry *station.BootLog) error
	TouchHeartbeat(ctx context.Context, id string, at time.Time) error
	UpsertConnector(ctx context.Context, c *station.Connector) error
}

// Authorizer checks an idTag.
type Authorizer interface {
	Authorize(ctx context.Context, key string) ocpp.IDTagInfo
}

// Sessions opens and closes charging sessions.
type Sessions interface {
	Start(ctx context.Context, req transaction.StartRequest) transaction.StartResult
	Stop(ctx context.Context, req transaction.StopRequest) ocpp.IDTagInfo
}

// MeterIngestor stores MeterValues samples.
type MeterIngestor interface {
	Ingest(ctx context.Context, stationID string, req *ocpp.MeterValuesRequest) int
}

// Handlers implements the charge-point-initiated actions.
type Handlers struct {
	stations          StationStore
	auth              Authorizer
	sessions          Sessions
	meter             MeterIngestor
	events            Events
	logger            Logger
	heartbeatInterval int
	now               func() time.Time
}

// NewHandlers creates the action handlers. heartbeatInterval is the interval
// in seconds handed to accepted charge points.
func NewHandlers(stations StationStore, auth Authorizer, sessions Sessions, meter MeterIngestor, heartbeatInterval int) *Handlers {
	return &Handlers{
		stations:          stations,
		auth:              auth,
		sessions:          sessions,
		meter:             meter,
		events:            NoopEvents{},
		logger:            noopLogger{},
		heartbeatInterval: heartbeatInterval,
		now:               time.Now,
	}
}

// SetLogger sets the logger for the handlers.
func (h *Handlers) SetLogger(logger Logger) {
	h.logger = logger
}

// SetEvents sets the sink for boot and connector events.
func (h *Handlers) SetEvents(events Events) {
	if events == nil {
		events = NoopEvents{}
	}
	h.events = events
}

// SetClock replaces the time source.
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}

// Register installs every handler on r.
func (h *Handlers) Register(r *Router) {
	r.Handle(ocpp.ActionBootNotification, Typed(h.bootNotification))
	r.Handle(ocpp.ActionHeartbeat, Typed(h.heartbeat))
	r.Handle(ocpp.ActionAuthorize, Typed(h.authorize))
	r.Handle(ocpp.ActionStatusNotification, Typed(h.statusNotification))
	r.Handle(ocpp.ActionMeterValues, Typed(h.meterValues))
	r.Handle(ocpp.ActionStartTransaction, Typed(h.startTransaction))
	r.Handle(ocpp.ActionStopTransaction, Typed(h.stopTransaction))
	r.Handle(ocpp.ActionDataTransfer, Typed(h.dataTransfer))
}

func (h *Handlers) bootNotification(ctx context.Context, stationID string, req *ocpp.BootNotificationRequest) (*ocpp.BootNotificationResponse, error) {
	now := h.now().UTC()
	info := station.BootInfo{
		Vendor:          req.ChargePointVendor,
		Model:           req.ChargePointModel,
		FirmwareVersion: req.FirmwareVersion,
		SerialNumber:    req.SerialNumber(),
	}

	if err := h.stations.UpsertBoot(ctx, stationID, info, now); err != nil {
		h.logger.Error("recording boot failed", "station_id", stationID, "error", err)
		return &ocpp.BootNotificationResponse{
			Status:      ocpp.RegistrationRejected,
			CurrentTime: ocpp.NewDateTime(now),
			Interval:    0,
		}, nil
	}

	entry := &station.BootLog{
		StationID:       stationID,
		Vendor:          info.Vendor,
		Model:           info.Model,
		FirmwareVersion: info.FirmwareVersion,
		SerialNumber:    info.SerialNumber,
		CreatedAt:       now,
	}
	if err := h.stations.AppendBootLog(ctx, entry); err != nil {
		h.logger.Warn("appending boot log failed", "station_id", stationID, "error", err)
	}

	h.logger.Info("station booted",
		"station_id", stationID, "vendor", info.Vendor, "model", info.Model, "firmware", info.FirmwareVersion)
	h.events.StationBooted(ctx, stationID, info)

	return &ocpp.BootNotificationResponse{
		Status:      ocpp.RegistrationAccepted,
		CurrentTime: ocpp.NewDateTime(now),
		Interval:    h.heartbeatInterval,
	}, nil
}

func (h *Handlers) heartbeat(ctx context.Context, stationID string, _ *ocpp.HeartbeatRequest) (*ocpp.HeartbeatResponse, error) {
	now := h.now().UTC()
	if err := h.stations.TouchHeartbeat(ctx, stationID, now); err != nil {
		h.logger.Warn("recording heartbeat failed", "station_id", stationID, "error", err)
	}
	return &ocpp.HeartbeatResponse{CurrentTime: ocpp.NewDateTime(now)}, nil
}

func (h *Handlers) authorize(ctx context.Context, stationID string, req *ocpp.AuthorizeRequest) (*ocpp.AuthorizeResponse, error) {
	info := h.auth.Authorize(ctx, req.IDTag)
	h.logger.Debug("authorize", "station_id", stationID, "status", info.Status)
	return &ocpp.AuthorizeResponse{IDTagInfo: info}, nil
}

func (h *Handlers) statusNotification(ctx context.Context, stationID string, req *ocpp.StatusNotificationRequest) (*ocpp.StatusNotificationResponse, error) {
	c := &station.Connector{
		StationID:       stationID,
		ConnectorID:     req.ConnectorID,
		Status:          req.Status,
		ErrorCode:       req.ErrorCode,
		Info:            req.Info,
		VendorErrorCode: req.VendorErrorCode,
	}
	if req.Timestamp != nil {
		c.UpdatedAt = req.Timestamp.UTC()
	}

	if err := h.stations.UpsertConnector(ctx, c); err != nil {
		h.logger.Error("recording connector status failed",
			"station_id", stationID, "connector_id", req.ConnectorID, "error", err)
		return &ocpp.StatusNotificationResponse{}, nil
	}

	h.logger.Debug("connector status",
		"station_id", stationID, "connector_id", c.ConnectorID, "status", c.Status, "error_code", c.ErrorCode)
	h.events.ConnectorStatus(ctx, c)
	return &ocpp.StatusNotificationResponse{}, nil
}

func (h *Handlers) meterValues(ctx context.Context, stationID string, req *ocpp.MeterValuesRequest) (*ocpp.MeterValuesResponse, error) {
	stored := h.meter.Ingest(ctx, stationID, req)
	h.logger.Debug("meter values", "station_id", stationID, "connector_id", req.ConnectorID, "stored", stored)
	return &ocpp.MeterValuesResponse{}, nil
}

func (h *Handlers) startTransaction(ctx context.Context, stationID string, req *ocpp.StartTransactionRequest) (*ocpp.StartTransactionResponse, error) {
	res := h.sessions.Start(ctx, transaction.StartRequest{
		StationID:     stationID,
		ConnectorID:   req.ConnectorID,
		IDTag:         req.IDTag,
		MeterStart:    req.MeterStart,
		ReservationID: req.ReservationID,
		Timestamp:     req.Timestamp.Time,
	})
	return &ocpp.StartTransactionResponse{IDTagInfo: res.IDTagInfo, TransactionID: res.SessionID}, nil
}

func (h *Handlers) stopTransaction(ctx context.Context, stationID string, req *ocpp.StopTransactionRequest) (*ocpp.StopTransactionResponse, error) {
	info := h.sessions.Stop(ctx, transaction.StopRequest{
		StationID:       stationID,
		SessionID:       req.TransactionID,
		IDTag:           req.IDTag,
		MeterStop:       req.MeterStop,
		Timestamp:       req.Timestamp.Time,
		Reason:          req.Reason,
		TransactionData: req.TransactionData,
	})
	return &ocpp.StopTransactionResponse{IDTagInfo: &info}, nil
}

func (h *Handlers) dataTransfer(_ context.Context, stationID string, req *ocpp.DataTransferRequest) (*ocpp.DataTransferResponse, error) {
	h.logger.Info("data transfer", "station_id", stationID, "vendor_id", req.VendorID, "message_id", req.MessageID)
	return &ocpp.DataTransferResponse{Status: ocpp.DataTransferAccepted}, nil
}
