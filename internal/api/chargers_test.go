package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/nerrad567/ocpp-gateway/internal/audit"
	"github.com/nerrad567/ocpp-gateway/internal/auth"
	"github.com/nerrad567/ocpp-gateway/internal/authorization"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

func TestListChargers_Empty(t *testing.T) {
	env := newTestAPI(t, nil)

	var body struct {
		Chargers []chargerView `json:"chargers"`
		Count    int           `json:"count"`
	}
	resp := env.do(t, http.MethodGet, "/api/v1/chargers", bearer(t, auth.RoleViewer), "", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Count != 0 || body.Chargers == nil {
		t.Errorf("body = %+v, want an empty list", body)
	}
}

func TestListChargers_OpenSessionEnergySoFar(t *testing.T) {
	env := newTestAPI(t, nil)
	ctx := context.Background()
	if err := env.tokens.UpsertToken(ctx, &authorization.Token{Key: "TAG1", Status: ocpp.AuthorizationAccepted}); err != nil {
		t.Fatalf("UpsertToken() error = %v", err)
	}

	cp := env.dial(t, "CP1")
	cp.boot()
	cp.result(ocpp.ActionStatusNotification, map[string]any{
		"connectorId": 1,
		"errorCode":   "NoError",
		"status":      "Charging",
	}, nil)

	var started ocpp.StartTransactionResponse
	cp.result(ocpp.ActionStartTransaction, map[string]any{
		"connectorId": 1,
		"idTag":       "TAG1",
		"meterStart":  1000,
		"timestamp":   "2026-03-01T10:00:00Z",
	}, &started)
	cp.result(ocpp.ActionMeterValues, map[string]any{
		"connectorId":   1,
		"transactionId": started.TransactionID,
		"meterValue": []any{map[string]any{
			"timestamp":    "2026-03-01T10:15:00Z",
			"sampledValue": []any{map[string]any{"value": "1500", "unit": "Wh"}},
		}},
	}, nil)

	var body struct {
		Chargers []chargerView `json:"chargers"`
	}
	env.do(t, http.MethodGet, "/api/v1/chargers", bearer(t, auth.RoleViewer), "", &body)
	if len(body.Chargers) != 1 {
		t.Fatalf("chargers = %+v", body.Chargers)
	}

	ch := body.Chargers[0]
	if ch.ID != "CP1" || !ch.Online || !ch.Connected || ch.Vendor != "Acme" {
		t.Errorf("charger = %+v", ch)
	}
	if len(ch.Connectors) != 1 || ch.Connectors[0].Status != ocpp.StatusCharging {
		t.Errorf("connectors = %+v", ch.Connectors)
	}
	if len(ch.Sessions) != 1 || ch.Sessions[0].ID != started.TransactionID {
		t.Fatalf("sessions = %+v", ch.Sessions)
	}
	if e := ch.Sessions[0].EnergySoFarKWh; e == nil || *e != 0.5 {
		t.Errorf("energy so far = %v, want 0.5", e)
	}
}

func TestGetCharger(t *testing.T) {
	env := newTestAPI(t, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/chargers/CP404", bearer(t, auth.RoleViewer), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown charger status = %d, want 404", resp.StatusCode)
	}

	cp := env.dial(t, "CP1")
	cp.boot()

	var ch chargerView
	resp = env.do(t, http.MethodGet, "/api/v1/chargers/CP1", bearer(t, auth.RoleViewer), "", &ch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ch.ID != "CP1" || ch.Model != "X1" || !ch.Connected {
		t.Errorf("charger = %+v", ch)
	}
}

func TestListMessages(t *testing.T) {
	env := newTestAPI(t, nil)
	cp := env.dial(t, "CP1")
	cp.boot()
	cp.result(ocpp.ActionHeartbeat, map[string]any{}, nil)

	var all audit.ListResult
	env.do(t, http.MethodGet, "/api/v1/chargers/CP1/messages", bearer(t, auth.RoleViewer), "", &all)
	if all.Total != 4 {
		t.Fatalf("total = %d, want 4", all.Total)
	}

	var incoming audit.ListResult
	env.do(t, http.MethodGet, "/api/v1/chargers/CP1/messages?direction=Incoming&action=Heartbeat",
		bearer(t, auth.RoleViewer), "", &incoming)
	if incoming.Total != 1 || incoming.Entries[0].MessageType != "CALL" {
		t.Errorf("incoming heartbeats = %+v", incoming)
	}

	var page audit.ListResult
	env.do(t, http.MethodGet, "/api/v1/chargers/CP1/messages?limit=1&offset=1", bearer(t, auth.RoleViewer), "", &page)
	if len(page.Entries) != 1 || page.Limit != 1 || page.Offset != 1 {
		t.Errorf("page = %+v", page)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/chargers/CP1/messages?direction=Sideways", bearer(t, auth.RoleViewer), "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad direction status = %d, want 400", resp.StatusCode)
	}
}
