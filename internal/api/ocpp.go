package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	"github.com/nerrad567/ocpp-gateway/internal/station"
)

// upgrader negotiates the OCPP 1.6-J subprotocol. Charge points rarely send
// an Origin header, so origin checks are left to the network.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{ocpp.Subprotocol},
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleOCPP upgrades a charge point connection and hands it to the gateway.
// The handler returns when the socket closes.
func (s *Server) handleOCPP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointID")
	if err := station.ValidateID(id); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if !slices.Contains(websocket.Subprotocols(r), ocpp.Subprotocol) {
		s.logger.Warn("charge point did not offer the OCPP subprotocol",
			"station_id", id,
			"offered", websocket.Subprotocols(r),
			"remote_addr", r.RemoteAddr,
		)
		writeBadRequest(w, "subprotocol "+ocpp.Subprotocol+" is required")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", "station_id", id, "error", err)
		return
	}

	s.logger.Info("charge point connected", "station_id", id, "remote_addr", r.RemoteAddr)
	s.gw.Serve(r.Context(), id, ws)
	s.logger.Info("charge point disconnected", "station_id", id)
}
