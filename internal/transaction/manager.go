package transaction

import (
	"context"
	"errors"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Authorizer checks an idTag.
type Authorizer interface {
	Authorize(ctx context.Context, key string) ocpp.IDTagInfo
}

// DataRecorder stores the transactionData samples of a StopTransaction.
type DataRecorder interface {
	RecordSessionValues(ctx context.Context, s *Session, values []ocpp.MeterValue) int
}

// EventPublisher is notified of session transitions.
type EventPublisher interface {
	SessionStarted(ctx context.Context, s *Session)
	SessionStopped(ctx context.Context, s *Session)
}

type noopPublisher struct{}

func (noopPublisher) SessionStarted(context.Context, *Session) {}
func (noopPublisher) SessionStopped(context.Context, *Session) {}

// Manager opens and closes sessions.
type Manager struct {
	repo     Repository
	auth     Authorizer
	recorder DataRecorder
	events   EventPublisher
	logger   Logger
}

// NewManager creates a Manager.
func NewManager(repo Repository, auth Authorizer) *Manager {
	return &Manager{
		repo:   repo,
		auth:   auth,
		events: noopPublisher{},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetDataRecorder sets where StopTransaction transactionData is stored.
func (m *Manager) SetDataRecorder(r DataRecorder) {
	m.recorder = r
}

// SetEventPublisher sets the session event sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.events = p
}

// Start authorises req.IDTag and opens a session.
func (m *Manager) Start(ctx context.Context, req StartRequest) StartResult {
	info := m.auth.Authorize(ctx, req.IDTag)
	if info.Status != ocpp.AuthorizationAccepted {
		m.logger.Info("start transaction refused",
			"station_id", req.StationID, "connector_id", req.ConnectorID, "status", info.Status)
		return StartResult{IDTagInfo: info}
	}

	s := &Session{
		StationID:     req.StationID,
		ConnectorID:   req.ConnectorID,
		IDTag:         req.IDTag,
		ReservationID: req.ReservationID,
		StartTime:     req.Timestamp.UTC(),
		MeterStart:    req.MeterStart,
	}
	superseded, err := m.repo.Create(ctx, s)
	if err != nil {
		m.logger.Error("persisting session failed",
			"station_id", req.StationID, "connector_id", req.ConnectorID, "error", err)
		return StartResult{IDTagInfo: ocpp.IDTagInfo{Status: ocpp.AuthorizationConcurrentTx}}
	}

	if superseded != nil {
		m.logger.Warn("closed stale session on occupied connector",
			"station_id", req.StationID,
			"connector_id", req.ConnectorID,
			"closed_session_id", superseded.ID,
			"session_id", s.ID,
		)
		m.events.SessionStopped(ctx, superseded)
	}

	m.logger.Info("session started",
		"station_id", s.StationID, "connector_id", s.ConnectorID, "session_id", s.ID)
	m.events.SessionStarted(ctx, s)

	return StartResult{SessionID: s.ID, IDTagInfo: info}
}

// Stop closes the session named by req.SessionID. The returned IdTagInfo is
// always set.
func (m *Manager) Stop(ctx context.Context, req StopRequest) ocpp.IDTagInfo {
	s, err := m.repo.GetByID(ctx, req.SessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		m.logger.Warn("stop for unknown session",
			"station_id", req.StationID, "session_id", req.SessionID)
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationExpired}
	case err != nil:
		m.logger.Error("loading session failed", "session_id", req.SessionID, "error", err)
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}

	if !s.Open() {
		m.logger.Warn("stop for closed session",
			"station_id", req.StationID, "session_id", req.SessionID)
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}
	if s.StationID != req.StationID {
		m.logger.Warn("stop for session owned by another station",
			"station_id", req.StationID, "session_id", req.SessionID, "owner", s.StationID)
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}

	if len(req.TransactionData) > 0 && m.recorder != nil {
		stored := m.recorder.RecordSessionValues(ctx, s, req.TransactionData)
		m.logger.Debug("stored transaction data", "session_id", s.ID, "readings", stored)
	}

	reason := req.Reason
	if reason == "" {
		reason = ocpp.ReasonLocal
	}
	s.close(req.Timestamp.UTC(), req.MeterStop, reason)
	if s.EnergyKWh == nil {
		m.logger.Warn("meter stop below meter start, energy left unset",
			"session_id", s.ID, "meter_start", s.MeterStart, "meter_stop", req.MeterStop)
	}

	if err := m.repo.Close(ctx, s); err != nil {
		if !errors.Is(err, ErrSessionClosed) {
			m.logger.Error("closing session failed", "session_id", s.ID, "error", err)
		}
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}

	m.logger.Info("session stopped",
		"station_id", s.StationID, "session_id", s.ID, "reason", s.StopReason)
	m.events.SessionStopped(ctx, s)

	if req.IDTag == "" {
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationAccepted}
	}
	return m.auth.Authorize(ctx, req.IDTag)
}
