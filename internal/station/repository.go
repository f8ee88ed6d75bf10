package station

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Repository defines station, connector and boot log persistence.
type Repository interface {
	// GetStation retrieves a station by ID.
	// Returns ErrStationNotFound if it does not exist.
	GetStation(ctx context.Context, id string) (*Station, error)

	// ListStations retrieves all stations ordered by ID.
	ListStations(ctx context.Context) ([]Station, error)

	// UpsertBoot records the descriptive fields of a BootNotification,
	// creating the station if needed, and marks it online.
	UpsertBoot(ctx context.Context, id string, info BootInfo, at time.Time) error

	// SetOnline marks a station online, creating a placeholder row if unknown.
	SetOnline(ctx context.Context, id string, at time.Time) error

	// SetOffline marks a station offline and forces its connectors to Unknown
	// in one transaction. Unknown stations are ignored.
	SetOffline(ctx context.Context, id string) error

	// TouchHeartbeat records a heartbeat and marks the station online.
	TouchHeartbeat(ctx context.Context, id string, at time.Time) error

	// GetConnector retrieves one connector.
	// Returns ErrConnectorNotFound if it does not exist.
	GetConnector(ctx context.Context, stationID string, connectorID int) (*Connector, error)

	// UpsertConnector records a connector status. A station that is not
	// online gets Unknown regardless of the reported status.
	UpsertConnector(ctx context.Context, c *Connector) error

	// ListConnectors retrieves every connector of a station.
	ListConnectors(ctx context.Context, stationID string) ([]Connector, error)

	// AppendBootLog stores a boot log entry, assigning its ID if empty.
	AppendBootLog(ctx context.Context, entry *BootLog) error

	// OfflineMissing forces offline every online station whose ID is not in
	// activeIDs, with its connectors set to Unknown. It returns the IDs it
	// changed.
	OfflineMissing(ctx context.Context, activeIDs []string) ([]string, error)

	// ResetMismatchedConnectors forces to Unknown every connector of an
	// offline station whose status is not Unknown. It returns the number of
	// connectors changed.
	ResetMismatchedConnectors(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const stationColumns = `
	id, vendor, model, firmware_version, serial_number, online,
	last_heartbeat, created_at, updated_at`

// GetStation retrieves a station by ID.
func (r *SQLiteRepository) GetStation(ctx context.Context, id string) (*Station, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id)
	s, err := scanStation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("querying station: %w", err)
	}
	return s, nil
}

// ListStations retrieves all stations ordered by ID.
func (r *SQLiteRepository) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}
	return stations, nil
}

// UpsertBoot records BootNotification fields and marks the station online.
func (r *SQLiteRepository) UpsertBoot(ctx context.Context, id string, info BootInfo, at time.Time) error {
	if id == "" {
		return ErrInvalidStation
	}
	now := database.FormatTime(r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (
			id, vendor, model, firmware_version, serial_number, online,
			last_heartbeat, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vendor = excluded.vendor,
			model = excluded.model,
			firmware_version = excluded.firmware_version,
			serial_number = excluded.serial_number,
			online = 1,
			last_heartbeat = excluded.last_heartbeat,
			updated_at = excluded.updated_at`,
		id,
		info.Vendor,
		info.Model,
		database.NullableString(info.FirmwareVersion),
		database.NullableString(info.SerialNumber),
		database.FormatTime(at),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting station boot: %w", err)
	}
	return nil
}

// SetOnline marks a station online, creating a placeholder if unknown.
func (r *SQLiteRepository) SetOnline(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrInvalidStation
	}
	ts := database.FormatTime(at)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (id, online, created_at, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET online = 1, updated_at = excluded.updated_at`,
		id, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("marking station online: %w", err)
	}
	return nil
}

// SetOffline marks a station offline and its connectors Unknown.
func (r *SQLiteRepository) SetOffline(ctx context.Context, id string) error {
	now := database.FormatTime(r.now())
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return forceOffline(ctx, tx, id, now)
	})
}

// TouchHeartbeat records a heartbeat and marks the station online.
func (r *SQLiteRepository) TouchHeartbeat(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrInvalidStation
	}
	ts := database.FormatTime(at)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (id, online, last_heartbeat, created_at, updated_at)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			online = 1,
			last_heartbeat = excluded.last_heartbeat,
			updated_at = excluded.updated_at`,
		id, ts, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	return nil
}

// GetConnector retrieves one connector.
func (r *SQLiteRepository) GetConnector(ctx context.Context, stationID string, connectorID int) (*Connector, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT station_id, connector_id, status, error_code, info, vendor_error_code, updated_at
		FROM connectors
		WHERE station_id = ? AND connector_id = ?`,
		stationID, connectorID,
	)
	c, err := scanConnector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectorNotFound
		}
		return nil, fmt.Errorf("querying connector: %w", err)
	}
	return c, nil
}

// UpsertConnector records a connector status.
func (r *SQLiteRepository) UpsertConnector(ctx context.Context, c *Connector) error {
	if c.StationID == "" {
		return ErrInvalidStation
	}
	if c.ErrorCode == "" {
		c.ErrorCode = ocpp.ErrorCodeNoError
	}
	if c.Status == "" {
		c.Status = ocpp.StatusUnknown
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = r.now()
	}
	ts := database.FormatTime(c.UpdatedAt)

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var online bool
		err := tx.QueryRowContext(ctx, "SELECT online FROM stations WHERE id = ?", c.StationID).Scan(&online)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stations (id, online, created_at, updated_at) VALUES (?, 0, ?, ?)",
				c.StationID, ts, ts,
			); err != nil {
				return fmt.Errorf("creating placeholder station: %w", err)
			}
		case err != nil:
			return fmt.Errorf("reading station state: %w", err)
		}
		if !online {
			c.Status = ocpp.StatusUnknown
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO connectors (
				station_id, connector_id, status, error_code, info, vendor_error_code, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(station_id, connector_id) DO UPDATE SET
				status = excluded.status,
				error_code = excluded.error_code,
				info = excluded.info,
				vendor_error_code = excluded.vendor_error_code,
				updated_at = excluded.updated_at`,
			c.StationID,
			c.ConnectorID,
			string(c.Status),
			string(c.ErrorCode),
			database.NullableString(c.Info),
			database.NullableString(c.VendorErrorCode),
			ts,
		)
		if err != nil {
			return fmt.Errorf("upserting connector: %w", err)
		}
		return nil
	})
}

// ListConnectors retrieves every connector of a station.
func (r *SQLiteRepository) ListConnectors(ctx context.Context, stationID string) ([]Connector, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT station_id, connector_id, status, error_code, info, vendor_error_code, updated_at
		FROM connectors
		WHERE station_id = ?
		ORDER BY connector_id`,
		stationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		connectors = append(connectors, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return connectors, nil
}

// AppendBootLog stores a boot log entry.
func (r *SQLiteRepository) AppendBootLog(ctx context.Context, entry *BootLog) error {
	if entry.ID == "" {
		entry.ID = "boot-" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boot_logs (id, station_id, vendor, model, firmware_version, serial_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StationID,
		entry.Vendor,
		entry.Model,
		database.NullableString(entry.FirmwareVersion),
		database.NullableString(entry.SerialNumber),
		database.FormatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting boot log: %w", err)
	}
	return nil
}

// OfflineMissing forces offline every online station not in activeIDs.
func (r *SQLiteRepository) OfflineMissing(ctx context.Context, activeIDs []string) ([]string, error) {
	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
	}
	now := database.FormatTime(r.now())

	var changed []string
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		online, err := onlineStationIDs(ctx, tx)
		if err != nil {
			return err
		}
		for _, id := range online {
			if _, live := active[id]; live {
				continue
			}
			if err := forceOffline(ctx, tx, id, now); err != nil {
				return err
			}
			changed = append(changed, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// ResetMismatchedConnectors forces connectors of offline stations to Unknown.
func (r *SQLiteRepository) ResetMismatchedConnectors(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE connectors
		SET status = ?, updated_at = ?
		WHERE status != ?
			AND station_id IN (SELECT id FROM stations WHERE online = 0)`,
		string(ocpp.StatusUnknown),
		database.FormatTime(r.now()),
		string(ocpp.StatusUnknown),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting mismatched connectors: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func onlineStationIDs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM stations WHERE online = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying online stations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning station id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating online stations: %w", err)
	}
	return ids, nil
}

func forceOffline(ctx context.Context, tx *sql.Tx, id, now string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE stations SET online = 0, updated_at = ? WHERE id = ?", now, id,
	); err != nil {
		return fmt.Errorf("marking station offline: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE connectors SET status = ?, updated_at = ? WHERE station_id = ? AND status != ?",
		string(ocpp.StatusUnknown), now, id, string(ocpp.StatusUnknown),
	); err != nil {
		return fmt.Errorf("resetting connectors: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (*Station, error) {
	var (
		s                        Station
		firmware, serial, lastHB sql.NullString
		createdAt, updatedAt     string
	)
	if err := row.Scan(
		&s.ID, &s.Vendor, &s.Model, &firmware, &serial, &s.Online,
		&lastHB, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	s.FirmwareVersion = firmware.String
	s.SerialNumber = serial.String

	var err error
	if s.LastHeartbeat, err = database.ParseNullableTime(lastHB); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanConnector(row scanner) (*Connector, error) {
	var (
		c                     Connector
		status, errorCode     string
		info, vendorErrorCode sql.NullString
		updatedAt             string
	)
	if err := row.Scan(
		&c.StationID, &c.ConnectorID, &status, &errorCode, &info, &vendorErrorCode, &updatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = ocpp.ChargePointStatus(status)
	c.ErrorCode = ocpp.ChargePointErrorCode(errorCode)
	c.Info = info.String
	c.VendorErrorCode = vendorErrorCode.String

	var err error
	if c.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
