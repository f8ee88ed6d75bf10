// Package audit stores the append-only log of every OCPP frame exchanged
// with charge points.
//
// The log is an audit trail only; protocol handling never depends on it and
// a failed append never aborts message processing.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// ErrInvalidEntry is returned when an entry lacks its station or direction.
var ErrInvalidEntry = errors.New("audit: invalid entry")

// Direction says which side sent a frame.
type Direction string

const (
	Incoming Direction = "Incoming"
	Outgoing Direction = "Outgoing"
)

// Entry is one logged frame.
type Entry struct {
	ID          string          `json:"id"`
	StationID   string          `json:"station_id"`
	Direction   Direction       `json:"direction"`
	MessageType string          `json:"message_type"`
	Action      string          `json:"action"`
	UniqueID    string          `json:"unique_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	StationID string    // optional: one charge point
	Direction Direction // optional: Incoming or Outgoing
	Action    string    // optional: OCPP action name
	Limit     int       // default 50, max 200
	Offset    int       // pagination offset
}

// ListResult contains a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines message log operations.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the message log in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new message log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Append(ctx context.Context, e *Entry) error {
	if e.StationID == "" || (e.Direction != Incoming && e.Direction != Outgoing) {
		return ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = "msg-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_logs (id, station_id, direction, message_type, action, unique_id, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StationID, string(e.Direction), e.MessageType, e.Action,
		database.NullableString(e.UniqueID), payload,
		database.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message log: %w", err)
	}
	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.StationID != "" {
		conditions = append(conditions, "station_id = ?")
		args = append(args, filter.StationID)
	}
	if filter.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM message_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting message logs: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		`SELECT id, station_id, direction, message_type, action, unique_id, payload, created_at
		FROM message_logs %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying message logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var direction, createdAt string
		var uniqueID, payload sql.NullString

		if err := rows.Scan(&e.ID, &e.StationID, &direction, &e.MessageType, &e.Action,
			&uniqueID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message log: %w", err)
		}
		e.Direction = Direction(direction)
		e.UniqueID = uniqueID.String
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		if e.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing message log timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message logs: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
