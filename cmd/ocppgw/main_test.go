package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/ocpp-gateway/internal/auth"
	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a minimal config with MQTT and InfluxDB disabled and
// points OCPPGW_CONFIG at it.
func writeConfig(t *testing.T, dbPath string, port int) {
	t.Helper()

	content := fmt.Sprintf(`
gateway:
  id: test-gw

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 5
    write: 10
    idle: 30

ocpp:
  watchdog_interval: 1

security:
  jwt:
    secret: %q
`, dbPath, port, testSecret)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("OCPPGW_CONFIG", path)
	for _, key := range []string{"OCPPGW_JWT_SECRET", "OCPPGW_DATABASE_PATH", "OCPPGW_API_HOST", "OCPPGW_API_PORT"} {
		t.Setenv(key, "")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("OCPPGW_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, "", 9000)

	if err := run(context.Background()); err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Fatalf("run() error = %v, want database.path validation error", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("OCPPGW_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("OCPPGW_CONFIG", "/etc/ocppgw/config.yaml")
	if got := getConfigPath(); got != "/etc/ocppgw/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ocppgw.db")
	port := freePort(t)
	writeConfig(t, dbPath, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/api/v1/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	dialer := websocket.Dialer{Subprotocols: []string{ocpp.Subprotocol}}
	ws, resp, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ocpp/CP1", port), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	defer ws.Close()

	if err := ws.WriteJSON([]any{2, "boot-1", ocpp.ActionBootNotification, map[string]any{
		"chargePointVendor": "Acme",
		"chargePointModel":  "X1",
	}}); err != nil {
		t.Fatalf("write boot: %v", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, data, err := ws.ReadMessage(); err != nil || !strings.Contains(string(data), "Accepted") {
		t.Fatalf("boot reply = %s, %v", data, err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	// Shutdown closes the socket and records the station offline.
	db, err := database.Open(database.Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	st, err := station.NewSQLiteRepository(db.DB).GetStation(context.Background(), "CP1")
	if err != nil {
		t.Fatalf("GetStation() error = %v", err)
	}
	if st.Online || st.Vendor != "Acme" {
		t.Errorf("station after shutdown = %+v", st)
	}
}

func TestRunToken(t *testing.T) {
	writeConfig(t, filepath.Join(t.TempDir(), "ocppgw.db"), 9000)

	var out bytes.Buffer
	if err := runToken([]string{"-sub", "alice", "-role", "operator", "-ttl", "1h"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "alice" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}

	if err := runToken([]string{"-role", "operator"}, &out); err == nil {
		t.Error("runToken() without -sub should fail")
	}
	if err := runToken([]string{"-sub", "bob", "-role", "root"}, &out); err == nil {
		t.Error("runToken() with unknown role should fail")
	}
}

type countingPublisher struct {
	started, stopped int
}

func (p *countingPublisher) SessionStarted(context.Context, *transaction.Session) { p.started++ }
func (p *countingPublisher) SessionStopped(context.Context, *transaction.Session) { p.stopped++ }

func TestSessionPublishers(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	pubs := sessionPublishers{a, b}

	s := &transaction.Session{ID: 1}
	pubs.SessionStarted(context.Background(), s)
	pubs.SessionStopped(context.Background(), s)
	pubs.SessionStopped(context.Background(), s)

	for i, p := range []*countingPublisher{a, b} {
		if p.started != 1 || p.stopped != 2 {
			t.Errorf("publisher %d = %+v, want 1 start and 2 stops", i, p)
		}
	}
}
