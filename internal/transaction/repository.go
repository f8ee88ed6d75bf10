package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Repository defines session persistence.
type Repository interface {
	// Create stores s as an open session and sets s.ID. An open session on
	// the same connector is closed first in the same transaction and
	// returned; otherwise the returned session is nil.
	Create(ctx context.Context, s *Session) (superseded *Session, err error)

	// GetByID retrieves a session.
	// Returns ErrSessionNotFound if it does not exist.
	GetByID(ctx context.Context, id int) (*Session, error)

	// Close writes the closing fields of s. It only touches an open row and
	// returns ErrSessionClosed when the session was already closed.
	Close(ctx context.Context, s *Session) error

	// FindOpen retrieves the open session on a connector.
	// Returns ErrSessionNotFound if there is none.
	FindOpen(ctx context.Context, stationID string, connectorID int) (*Session, error)

	// ListOpen retrieves the open sessions of a station.
	ListOpen(ctx context.Context, stationID string) ([]Session, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `
	id, station_id, connector_id, id_tag, reservation_id, start_time, meter_start,
	end_time, meter_stop, energy_kwh, stop_reason`

// Create stores s as an open session.
func (r *SQLiteRepository) Create(ctx context.Context, s *Session) (*Session, error) {
	if s.StationID == "" || s.IDTag == "" {
		return nil, ErrInvalidSession
	}

	var superseded *Session
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		prior, err := scanSession(tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions
			WHERE station_id = ? AND connector_id = ? AND end_time IS NULL`,
			s.StationID, s.ConnectorID,
		))
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("querying open session: %w", err)
		default:
			prior.close(s.StartTime, s.MeterStart, ocpp.ReasonOther)
			if err := closeSession(ctx, tx, prior); err != nil {
				return err
			}
			superseded = prior
		}

		now := database.FormatTime(time.Now())
		result, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (
				station_id, connector_id, id_tag, reservation_id, start_time, meter_start,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.StationID,
			s.ConnectorID,
			s.IDTag,
			nullableInt(s.ReservationID),
			database.FormatTime(s.StartTime),
			s.MeterStart,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading session id: %w", err)
		}
		s.ID = int(id)
		return nil
	})
	if err != nil {
		s.ID = 0
		return nil, err
	}
	return superseded, nil
}

// GetByID retrieves a session.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// Close writes the closing fields of an open session.
func (r *SQLiteRepository) Close(ctx context.Context, s *Session) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return closeSession(ctx, tx, s)
	})
}

// FindOpen retrieves the open session on a connector.
func (r *SQLiteRepository) FindOpen(ctx context.Context, stationID string, connectorID int) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		WHERE station_id = ? AND connector_id = ? AND end_time IS NULL`,
		stationID, connectorID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying open session: %w", err)
	}
	return s, nil
}

// ListOpen retrieves the open sessions of a station.
func (r *SQLiteRepository) ListOpen(ctx context.Context, stationID string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		WHERE station_id = ? AND end_time IS NULL
		ORDER BY connector_id`,
		stationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func closeSession(ctx context.Context, tx *sql.Tx, s *Session) error {
	if s.EndTime == nil || s.MeterStop == nil {
		return ErrInvalidSession
	}
	var energy any
	if s.EnergyKWh != nil {
		energy = *s.EnergyKWh
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE sessions SET
			end_time = ?, meter_stop = ?, energy_kwh = ?, stop_reason = ?, updated_at = ?
		WHERE id = ? AND end_time IS NULL`,
		database.FormatTime(*s.EndTime),
		*s.MeterStop,
		energy,
		database.NullableString(string(s.StopReason)),
		database.FormatTime(time.Now()),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionClosed
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s                     Session
		reservation, meterEnd sql.NullInt64
		startTime             string
		endTime, reason       sql.NullString
		energy                sql.NullFloat64
	)
	if err := row.Scan(
		&s.ID, &s.StationID, &s.ConnectorID, &s.IDTag, &reservation, &startTime, &s.MeterStart,
		&endTime, &meterEnd, &energy, &reason,
	); err != nil {
		return nil, err
	}

	var err error
	if s.StartTime, err = database.ParseTime(startTime); err != nil {
		return nil, err
	}
	if s.EndTime, err = database.ParseNullableTime(endTime); err != nil {
		return nil, err
	}
	if reservation.Valid {
		v := int(reservation.Int64)
		s.ReservationID = &v
	}
	if meterEnd.Valid {
		v := int(meterEnd.Int64)
		s.MeterStop = &v
	}
	if energy.Valid {
		v := energy.Float64
		s.EnergyKWh = &v
	}
	s.StopReason = ocpp.Reason(reason.String)
	return &s, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
