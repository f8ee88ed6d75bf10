package audit

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	_ "github.com/nerrad567/ocpp-gateway/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "audit.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestAppend(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	e := &Entry{
		StationID:   "CP1",
		Direction:   Incoming,
		MessageType: "CALL",
		Action:      "Heartbeat",
		UniqueID:    "u-1",
		Payload:     json.RawMessage(`{}`),
	}
	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(e.ID) < len("msg-") || e.ID[:4] != "msg-" {
		t.Errorf("ID = %q, want msg- prefix", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if err := repo.Append(ctx, &Entry{Direction: Incoming}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Append(no station) error = %v, want ErrInvalidEntry", err)
	}
	if err := repo.Append(ctx, &Entry{StationID: "CP1", Direction: "Sideways"}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Append(bad direction) error = %v, want ErrInvalidEntry", err)
	}
}

func TestList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{StationID: "CP1", Direction: Incoming, MessageType: "CALL", Action: "BootNotification", CreatedAt: base},
		{StationID: "CP1", Direction: Outgoing, MessageType: "CALLRESULT", Action: "BootNotification", CreatedAt: base.Add(time.Second)},
		{StationID: "CP1", Direction: Incoming, MessageType: "CALL", Action: "Heartbeat", CreatedAt: base.Add(2 * time.Second)},
		{StationID: "CP2", Direction: Incoming, MessageType: "CALL", Action: "Heartbeat", CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range entries {
		if err := repo.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		filter     Filter
		wantTotal  int
		wantFirst  string
		wantLen    int
		wantLimit  int
		wantOffset int
	}{
		{"all", Filter{}, 4, "Heartbeat", 4, 50, 0},
		{"station", Filter{StationID: "CP1"}, 3, "Heartbeat", 3, 50, 0},
		{"direction", Filter{StationID: "CP1", Direction: Outgoing}, 1, "BootNotification", 1, 50, 0},
		{"action", Filter{Action: "BootNotification"}, 2, "BootNotification", 2, 50, 0},
		{"paged", Filter{StationID: "CP1", Limit: 1, Offset: 1}, 3, "BootNotification", 1, 1, 1},
		{"limit clamped", Filter{Limit: 1000, Offset: -5}, 4, "Heartbeat", 4, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Entries) != tt.wantLen {
				t.Fatalf("List() total=%d len=%d, want %d/%d", res.Total, len(res.Entries), tt.wantTotal, tt.wantLen)
			}
			if res.Entries[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", res.Entries[0].Action, tt.wantFirst)
			}
			if res.Limit != tt.wantLimit || res.Offset != tt.wantOffset {
				t.Errorf("limit/offset = %d/%d, want %d/%d", res.Limit, res.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestList_Empty(t *testing.T) {
	repo := setupTestRepo(t)
	res, err := repo.List(context.Background(), Filter{StationID: "nobody"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Entries == nil || len(res.Entries) != 0 || res.Total != 0 {
		t.Errorf("List() = %+v, want empty non-nil page", res)
	}
}
