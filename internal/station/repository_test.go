package station

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	_ "github.com/nerrad567/ocpp-gateway/migrations"
)

// setupTestRepo opens a migrated SQLite database in a temp dir.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "station.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func mustConnector(t *testing.T, repo *SQLiteRepository, stationID string, connectorID int) *Connector {
	t.Helper()
	c, err := repo.GetConnector(context.Background(), stationID, connectorID)
	if err != nil {
		t.Fatalf("GetConnector(%s, %d) error = %v", stationID, connectorID, err)
	}
	return c
}

func mustStation(t *testing.T, repo *SQLiteRepository, id string) *Station {
	t.Helper()
	s, err := repo.GetStation(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStation(%s) error = %v", id, err)
	}
	return s
}

func TestSQLiteRepository_GetStation_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	if _, err := repo.GetStation(context.Background(), "missing"); !errors.Is(err, ErrStationNotFound) {
		t.Errorf("GetStation() error = %v, want ErrStationNotFound", err)
	}
	if _, err := repo.GetConnector(context.Background(), "missing", 1); !errors.Is(err, ErrConnectorNotFound) {
		t.Errorf("GetConnector() error = %v, want ErrConnectorNotFound", err)
	}
}

func TestSQLiteRepository_SetOnlineCreatesPlaceholder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.SetOnline(ctx, "CP1", time.Now()); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	s := mustStation(t, repo, "CP1")
	if !s.Online {
		t.Error("station should be online")
	}
	if s.Vendor != "" || s.Model != "" {
		t.Errorf("placeholder has metadata: %+v", s)
	}

	if err := repo.SetOnline(ctx, "", time.Now()); !errors.Is(err, ErrInvalidStation) {
		t.Errorf("SetOnline(\"\") error = %v, want ErrInvalidStation", err)
	}
}

func TestSQLiteRepository_UpsertBoot(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.SetOnline(ctx, "CP1", at); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	if err := repo.SetOffline(ctx, "CP1"); err != nil {
		t.Fatalf("SetOffline() error = %v", err)
	}

	info := BootInfo{Vendor: "Acme", Model: "X1", FirmwareVersion: "1.2.3", SerialNumber: "SN-9"}
	if err := repo.UpsertBoot(ctx, "CP1", info, at); err != nil {
		t.Fatalf("UpsertBoot() error = %v", err)
	}

	s := mustStation(t, repo, "CP1")
	if !s.Online || s.Vendor != "Acme" || s.Model != "X1" || s.FirmwareVersion != "1.2.3" || s.SerialNumber != "SN-9" {
		t.Errorf("station after boot = %+v", s)
	}
	if s.LastHeartbeat == nil || !s.LastHeartbeat.Equal(at) {
		t.Errorf("LastHeartbeat = %v, want %v", s.LastHeartbeat, at)
	}

	info.FirmwareVersion = "1.3.0"
	if err := repo.UpsertBoot(ctx, "CP1", info, at.Add(time.Minute)); err != nil {
		t.Fatalf("second UpsertBoot() error = %v", err)
	}
	if got := mustStation(t, repo, "CP1").FirmwareVersion; got != "1.3.0" {
		t.Errorf("FirmwareVersion = %q, want 1.3.0", got)
	}
}

func TestSQLiteRepository_TouchHeartbeat(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	if err := repo.TouchHeartbeat(ctx, "CP1", at); err != nil {
		t.Fatalf("TouchHeartbeat() error = %v", err)
	}
	s := mustStation(t, repo, "CP1")
	if !s.Online || s.LastHeartbeat == nil || !s.LastHeartbeat.Equal(at) {
		t.Errorf("station after heartbeat = %+v", s)
	}
}

func TestSQLiteRepository_UpsertConnector(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.SetOnline(ctx, "CP1", time.Now()); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}

	t.Run("defaults error code", func(t *testing.T) {
		if err := repo.UpsertConnector(ctx, &Connector{StationID: "CP1", ConnectorID: 1, Status: ocpp.StatusAvailable}); err != nil {
			t.Fatalf("UpsertConnector() error = %v", err)
		}
		c := mustConnector(t, repo, "CP1", 1)
		if c.Status != ocpp.StatusAvailable || c.ErrorCode != ocpp.ErrorCodeNoError {
			t.Errorf("connector = %+v", c)
		}
	})

	t.Run("updates in place", func(t *testing.T) {
		err := repo.UpsertConnector(ctx, &Connector{
			StationID:   "CP1",
			ConnectorID: 1,
			Status:      ocpp.StatusFaulted,
			ErrorCode:   ocpp.ErrorCodeGroundFailure,
			Info:        "RCD tripped",
		})
		if err != nil {
			t.Fatalf("UpsertConnector() error = %v", err)
		}
		c := mustConnector(t, repo, "CP1", 1)
		if c.Status != ocpp.StatusFaulted || c.ErrorCode != ocpp.ErrorCodeGroundFailure || c.Info != "RCD tripped" {
			t.Errorf("connector = %+v", c)
		}
		list, err := repo.ListConnectors(ctx, "CP1")
		if err != nil {
			t.Fatalf("ListConnectors() error = %v", err)
		}
		if len(list) != 1 {
			t.Errorf("ListConnectors() = %d, want 1", len(list))
		}
	})

	t.Run("offline station records unknown", func(t *testing.T) {
		if err := repo.UpsertConnector(ctx, &Connector{StationID: "CP9", ConnectorID: 2, Status: ocpp.StatusCharging}); err != nil {
			t.Fatalf("UpsertConnector() error = %v", err)
		}
		if got := mustConnector(t, repo, "CP9", 2).Status; got != ocpp.StatusUnknown {
			t.Errorf("Status = %v, want Unknown", got)
		}
		if mustStation(t, repo, "CP9").Online {
			t.Error("placeholder station should be offline")
		}
	})
}

func TestSQLiteRepository_SetOfflineCascades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.SetOnline(ctx, "CP1", time.Now()); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := repo.UpsertConnector(ctx, &Connector{StationID: "CP1", ConnectorID: i, Status: ocpp.StatusAvailable}); err != nil {
			t.Fatalf("UpsertConnector() error = %v", err)
		}
	}

	if err := repo.SetOffline(ctx, "CP1"); err != nil {
		t.Fatalf("SetOffline() error = %v", err)
	}
	if mustStation(t, repo, "CP1").Online {
		t.Error("station should be offline")
	}
	for i := 1; i <= 2; i++ {
		if got := mustConnector(t, repo, "CP1", i).Status; got != ocpp.StatusUnknown {
			t.Errorf("connector %d status = %v, want Unknown", i, got)
		}
	}

	if err := repo.SetOffline(ctx, "never-seen"); err != nil {
		t.Errorf("SetOffline(unknown) error = %v", err)
	}
}

func TestSQLiteRepository_OfflineMissing(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"CP1", "CP2", "CP3"} {
		if err := repo.SetOnline(ctx, id, time.Now()); err != nil {
			t.Fatalf("SetOnline(%s) error = %v", id, err)
		}
		if err := repo.UpsertConnector(ctx, &Connector{StationID: id, ConnectorID: 1, Status: ocpp.StatusCharging}); err != nil {
			t.Fatalf("UpsertConnector(%s) error = %v", id, err)
		}
	}

	changed, err := repo.OfflineMissing(ctx, []string{"CP1", "CP3"})
	if err != nil {
		t.Fatalf("OfflineMissing() error = %v", err)
	}
	if len(changed) != 1 || changed[0] != "CP2" {
		t.Fatalf("OfflineMissing() = %v, want [CP2]", changed)
	}
	if mustStation(t, repo, "CP2").Online {
		t.Error("CP2 should be offline")
	}
	if got := mustConnector(t, repo, "CP2", 1).Status; got != ocpp.StatusUnknown {
		t.Errorf("CP2 connector = %v, want Unknown", got)
	}
	if got := mustConnector(t, repo, "CP1", 1).Status; got != ocpp.StatusCharging {
		t.Errorf("CP1 connector = %v, want Charging", got)
	}

	changed, err = repo.OfflineMissing(ctx, []string{"CP1", "CP3"})
	if err != nil {
		t.Fatalf("second OfflineMissing() error = %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("second OfflineMissing() = %v, want none", changed)
	}

	changed, err = repo.OfflineMissing(ctx, nil)
	if err != nil {
		t.Fatalf("OfflineMissing(nil) error = %v", err)
	}
	if len(changed) != 2 {
		t.Errorf("OfflineMissing(nil) = %v, want CP1 and CP3", changed)
	}
}

func TestSQLiteRepository_ResetMismatchedConnectors(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.SetOnline(ctx, "CP1", time.Now()); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	if err := repo.UpsertConnector(ctx, &Connector{StationID: "CP1", ConnectorID: 1, Status: ocpp.StatusAvailable}); err != nil {
		t.Fatalf("UpsertConnector() error = %v", err)
	}
	if err := repo.SetOnline(ctx, "CP2", time.Now()); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}
	if err := repo.UpsertConnector(ctx, &Connector{StationID: "CP2", ConnectorID: 1, Status: ocpp.StatusAvailable}); err != nil {
		t.Fatalf("UpsertConnector() error = %v", err)
	}

	// Simulate drift from a direct data edit.
	if _, err := repo.db.ExecContext(ctx, "UPDATE stations SET online = 0 WHERE id = 'CP2'"); err != nil {
		t.Fatalf("drift setup error = %v", err)
	}

	n, err := repo.ResetMismatchedConnectors(ctx)
	if err != nil {
		t.Fatalf("ResetMismatchedConnectors() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ResetMismatchedConnectors() = %d, want 1", n)
	}
	if got := mustConnector(t, repo, "CP2", 1).Status; got != ocpp.StatusUnknown {
		t.Errorf("CP2 connector = %v, want Unknown", got)
	}
	if got := mustConnector(t, repo, "CP1", 1).Status; got != ocpp.StatusAvailable {
		t.Errorf("CP1 connector = %v, want Available", got)
	}

	n, err = repo.ResetMismatchedConnectors(ctx)
	if err != nil || n != 0 {
		t.Errorf("second ResetMismatchedConnectors() = %d, %v, want 0", n, err)
	}
}

func TestSQLiteRepository_AppendBootLog(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	entry := &BootLog{StationID: "CP1", Vendor: "Acme", Model: "X1", FirmwareVersion: "1.0"}
	if err := repo.AppendBootLog(ctx, entry); err != nil {
		t.Fatalf("AppendBootLog() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("AppendBootLog() did not fill ID/CreatedAt: %+v", entry)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM boot_logs WHERE station_id = 'CP1'").Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("boot_logs rows = %d, want 1", count)
	}
}

func TestSQLiteRepository_ListStations(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"CP2", "CP1"} {
		if err := repo.SetOnline(ctx, id, time.Now()); err != nil {
			t.Fatalf("SetOnline() error = %v", err)
		}
	}
	list, err := repo.ListStations(ctx)
	if err != nil {
		t.Fatalf("ListStations() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "CP1" || list[1].ID != "CP2" {
		t.Errorf("ListStations() = %+v", list)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"CP1", false},
		{"charger-0042_A", false},
		{"", true},
		{"has space", true},
		{"tab\tid", true},
		{string(make([]byte, maxIDLength+1)), true},
	}
	for _, tt := range tests {
		err := ValidateID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidStation) {
			t.Errorf("ValidateID(%q) error = %v, want ErrInvalidStation", tt.id, err)
		}
	}
}
