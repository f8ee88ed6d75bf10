package meter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
)

// Repository stores meter readings.
type Repository interface {
	// Insert stores a reading and sets its ID.
	Insert(ctx context.Context, r *Reading) error

	// ListBySession retrieves the readings of a session in time order.
	ListBySession(ctx context.Context, sessionID int) ([]Reading, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores a reading.
func (r *SQLiteRepository) Insert(ctx context.Context, rd *Reading) error {
	if rd.SessionID <= 0 || rd.Value == "" {
		return ErrInvalidReading
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO meter_readings (
			session_id, station_id, connector_id, timestamp, measurand, value,
			unit, phase, context, location, format, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.SessionID,
		rd.StationID,
		rd.ConnectorID,
		database.FormatTime(rd.Timestamp),
		rd.Measurand,
		rd.Value,
		database.NullableString(rd.Unit),
		database.NullableString(rd.Phase),
		database.NullableString(rd.Context),
		database.NullableString(rd.Location),
		database.NullableString(rd.Format),
		database.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("inserting meter reading: %w", err)
	}
	if rd.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading meter reading id: %w", err)
	}
	return nil
}

// ListBySession retrieves the readings of a session.
func (r *SQLiteRepository) ListBySession(ctx context.Context, sessionID int) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, station_id, connector_id, timestamp, measurand, value,
			unit, phase, context, location, format
		FROM meter_readings
		WHERE session_id = ?
		ORDER BY timestamp, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying meter readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var (
			rd                                        Reading
			ts                                        string
			unit, phase, sampleCtx, location, format sql.NullString
		)
		if err := rows.Scan(
			&rd.ID, &rd.SessionID, &rd.StationID, &rd.ConnectorID, &ts, &rd.Measurand, &rd.Value,
			&unit, &phase, &sampleCtx, &location, &format,
		); err != nil {
			return nil, fmt.Errorf("scanning meter reading: %w", err)
		}
		if rd.Timestamp, err = database.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing meter reading timestamp: %w", err)
		}
		rd.Unit = unit.String
		rd.Phase = phase.String
		rd.Context = sampleCtx.String
		rd.Location = location.String
		rd.Format = format.String
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating meter readings: %w", err)
	}
	return readings, nil
}
