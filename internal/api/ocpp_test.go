package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/ocpp-gateway/internal/auth"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

func TestOCPP_RequiresSubprotocol(t *testing.T) {
	env := newTestAPI(t, nil)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ocpp/CP1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() without subprotocol should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("response = %+v, want 400", resp)
	}
	if env.gw.Registry().Count() != 0 {
		t.Error("rejected client was registered")
	}
}

func TestOCPP_RejectsInvalidIdentity(t *testing.T) {
	env := newTestAPI(t, nil)

	dialer := websocket.Dialer{Subprotocols: []string{ocpp.Subprotocol}}
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ocpp/" + strings.Repeat("X", 65)
	_, resp, err := dialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() with oversized identity should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("response = %+v, want 400", resp)
	}
}

func TestOCPP_ConnectBootAndList(t *testing.T) {
	env := newTestAPI(t, nil)

	cp := env.dial(t, "CP1")
	if cp.ws.Subprotocol() != ocpp.Subprotocol {
		t.Fatalf("negotiated subprotocol = %q", cp.ws.Subprotocol())
	}
	cp.boot()

	var conns struct {
		Count       int              `json:"count"`
		IDs         []string         `json:"ids"`
		Connections []connectionView `json:"connections"`
	}
	env.do(t, http.MethodGet, "/api/v1/connections", bearer(t, auth.RoleViewer), "", &conns)
	if conns.Count != 1 || len(conns.IDs) != 1 || conns.IDs[0] != "CP1" {
		t.Fatalf("connections = %+v", conns)
	}
	if c := conns.Connections[0]; c.State != "open" || c.ConnectedAt.IsZero() {
		t.Errorf("connection = %+v", c)
	}

	cp.ws.Close() //nolint:errcheck // disconnect on purpose
	waitFor(t, "unregistration", func() bool { return env.gw.Registry().Count() == 0 })

	env.do(t, http.MethodGet, "/api/v1/connections", bearer(t, auth.RoleViewer), "", &conns)
	if conns.Count != 0 || len(conns.Connections) != 0 {
		t.Errorf("connections after close = %+v", conns)
	}
}
