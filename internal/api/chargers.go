package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ocpp-gateway/internal/audit"
	"github.com/nerrad567/ocpp-gateway/internal/meter"
	"github.com/nerrad567/ocpp-gateway/internal/station"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
)

// connectionView describes one live socket.
type connectionView struct {
	StationID    string    `json:"station_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	RemoteAddr   string    `json:"remote_addr"`
	State        string    `json:"state"`
	PendingCalls int       `json:"pending_calls"`
}

// sessionView is an open session with the energy delivered so far.
type sessionView struct {
	transaction.Session
	EnergySoFarKWh *float64 `json:"energy_so_far_kwh,omitempty"`
}

// chargerView is a station with its connectors and open sessions.
type chargerView struct {
	station.Station
	Connected  bool                `json:"connected"`
	Connectors []station.Connector `json:"connectors"`
	Sessions   []sessionView       `json:"sessions"`
}

// handleListConnections returns the IDs and details of live sockets.
func (s *Server) handleListConnections(w http.ResponseWriter, _ *http.Request) {
	registry := s.gw.Registry()
	ids := registry.SnapshotIDs()

	conns := make([]connectionView, 0, len(ids))
	for _, id := range ids {
		c := registry.Lookup(id)
		if c == nil {
			continue
		}
		conns = append(conns, connectionView{
			StationID:    id,
			ConnectedAt:  c.ConnectedAt(),
			RemoteAddr:   c.RemoteAddr(),
			State:        c.State().String(),
			PendingCalls: c.PendingCalls(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(ids),
		"ids":         ids,
		"connections": conns,
	})
}

// handleListChargers returns every station with its connectors and open
// sessions.
func (s *Server) handleListChargers(w http.ResponseWriter, r *http.Request) {
	stations, err := s.stations.ListStations(r.Context())
	if err != nil {
		s.logger.Error("failed to list stations", "error", err)
		writeInternalError(w, "failed to list chargers")
		return
	}

	chargers := make([]chargerView, 0, len(stations))
	for _, st := range stations {
		view, err := s.chargerView(r.Context(), st)
		if err != nil {
			s.logger.Error("failed to load charger", "station_id", st.ID, "error", err)
			writeInternalError(w, "failed to list chargers")
			return
		}
		chargers = append(chargers, view)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chargers": chargers,
		"count":    len(chargers),
	})
}

// handleGetCharger returns one station.
func (s *Server) handleGetCharger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.stations.GetStation(r.Context(), id)
	if errors.Is(err, station.ErrStationNotFound) {
		writeNotFound(w, "charger not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get station", "station_id", id, "error", err)
		writeInternalError(w, "failed to get charger")
		return
	}

	view, err := s.chargerView(r.Context(), *st)
	if err != nil {
		s.logger.Error("failed to load charger", "station_id", id, "error", err)
		writeInternalError(w, "failed to get charger")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) chargerView(ctx context.Context, st station.Station) (chargerView, error) {
	connectors, err := s.stations.ListConnectors(ctx, st.ID)
	if err != nil {
		return chargerView{}, err
	}
	open, err := s.sessions.ListOpen(ctx, st.ID)
	if err != nil {
		return chargerView{}, err
	}

	view := chargerView{
		Station:    st,
		Connected:  s.gw.Registry().Lookup(st.ID) != nil,
		Connectors: connectors,
		Sessions:   make([]sessionView, 0, len(open)),
	}
	if view.Connectors == nil {
		view.Connectors = []station.Connector{}
	}
	for _, sess := range open {
		view.Sessions = append(view.Sessions, s.sessionView(ctx, sess))
	}
	return view, nil
}

// sessionView attaches the energy delivered so far. A failed reading lookup
// leaves the figure out rather than failing the listing.
func (s *Server) sessionView(ctx context.Context, sess transaction.Session) sessionView {
	view := sessionView{Session: sess}
	if s.readings == nil {
		return view
	}

	readings, err := s.readings.ListBySession(ctx, sess.ID)
	if err != nil {
		s.logger.Warn("failed to load session readings", "session_id", sess.ID, "error", err)
		return view
	}
	if wh, ok := meter.LatestRegisterWh(readings); ok {
		view.EnergySoFarKWh = transaction.ConsumedKWh(sess.MeterStart, wh)
	}
	return view
}

// handleListMessages returns the message log of one station, most recent
// first.
//
// Query parameters:
//   - direction: Incoming or Outgoing
//   - action: OCPP action name
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		StationID: chi.URLParam(r, "id"),
		Direction: audit.Direction(q.Get("direction")),
		Action:    q.Get("action"),
	}

	switch filter.Direction {
	case "", audit.Incoming, audit.Outgoing:
	default:
		writeBadRequest(w, "direction must be Incoming or Outgoing")
		return
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.messages.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list message log", "station_id", filter.StationID, "error", err)
		writeInternalError(w, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
