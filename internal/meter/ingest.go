package meter

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// Logger defines the logging interface used by the Ingestor.
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

// SessionFinder resolves the session a reading belongs to.
type SessionFinder interface {
	GetByID(ctx context.Context, id int) (*transaction.Session, error)
	FindOpen(ctx context.Context, stationID string, connectorID int) (*transaction.Session, error)
}

// Sink receives every persisted reading, typically a time-series database.
type Sink interface {
	WriteMeterReading(ctx context.Context, r Reading) error
}

// Ingestor normalises and stores meter readings.
type Ingestor struct {
	repo     Repository
	sessions SessionFinder
	sink     Sink
	logger   Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(repo Repository, sessions SessionFinder) *Ingestor {
	return &Ingestor{repo: repo, sessions: sessions, logger: noopLogger{}}
}

// SetLogger sets the logger for the ingestor.
func (in *Ingestor) SetLogger(logger Logger) {
	in.logger = logger
}

// SetSink sets the time-series sink. A nil sink disables it.
func (in *Ingestor) SetSink(sink Sink) {
	in.sink = sink
}

// Ingest stores the readings of a MeterValues request and returns how many
// were persisted.
func (in *Ingestor) Ingest(ctx context.Context, stationID string, req *ocpp.MeterValuesRequest) int {
	s := in.resolve(ctx, stationID, req)
	if s == nil {
		in.logger.Debug("dropping meter values without open session",
			"station_id", stationID, "connector_id", req.ConnectorID, "samples", countSamples(req.MeterValue))
		return 0
	}
	return in.store(ctx, s, req.ConnectorID, req.MeterValue)
}

// RecordSessionValues stores transactionData samples for a known session.
func (in *Ingestor) RecordSessionValues(ctx context.Context, s *transaction.Session, values []ocpp.MeterValue) int {
	return in.store(ctx, s, s.ConnectorID, values)
}

func (in *Ingestor) resolve(ctx context.Context, stationID string, req *ocpp.MeterValuesRequest) *transaction.Session {
	if req.TransactionID != nil {
		s, err := in.sessions.GetByID(ctx, *req.TransactionID)
		switch {
		case err == nil && s.Open() && s.StationID == stationID:
			return s
		case err != nil && !errors.Is(err, transaction.ErrSessionNotFound):
			in.logger.Warn("session lookup failed", "session_id", *req.TransactionID, "error", err)
		}
	}

	s, err := in.sessions.FindOpen(ctx, stationID, req.ConnectorID)
	if err != nil {
		if !errors.Is(err, transaction.ErrSessionNotFound) {
			in.logger.Warn("open session lookup failed",
				"station_id", stationID, "connector_id", req.ConnectorID, "error", err)
		}
		return nil
	}
	return s
}

func (in *Ingestor) store(ctx context.Context, s *transaction.Session, connectorID int, values []ocpp.MeterValue) int {
	stored := 0
	for _, mv := range values {
		ts := mv.Timestamp.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		for _, sv := range mv.SampledValue {
			rd := normalise(Reading{
				SessionID:   s.ID,
				StationID:   s.StationID,
				ConnectorID: connectorID,
				Timestamp:   ts.UTC(),
				Measurand:   sv.Measurand,
				Value:       sv.Value,
				Unit:        sv.Unit,
				Phase:       sv.Phase,
				Context:     sv.Context,
				Location:    sv.Location,
				Format:      sv.Format,
			})
			if err := in.repo.Insert(ctx, &rd); err != nil {
				in.logger.Error("storing meter reading failed",
					"session_id", s.ID, "measurand", rd.Measurand, "error", err)
				continue
			}
			stored++

			if in.sink != nil {
				if err := in.sink.WriteMeterReading(ctx, rd); err != nil {
					in.logger.Warn("time-series write failed", "session_id", s.ID, "error", err)
				}
			}
		}
	}
	return stored
}

func normalise(rd Reading) Reading {
	if rd.Measurand == "" {
		rd.Measurand = DefaultMeasurand
	}
	if rd.Unit == "" {
		rd.Unit = DefaultUnit
	}
	if rd.Context == "" {
		rd.Context = DefaultContext
	}
	if rd.Format == "" {
		rd.Format = DefaultFormat
	}
	return rd
}

func countSamples(values []ocpp.MeterValue) int {
	n := 0
	for _, mv := range values {
		n += len(mv.SampledValue)
	}
	return n
}
