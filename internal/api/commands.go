package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ocpp-gateway/internal/gateway"
)

// commandRequest is the body of POST /chargers/{id}/commands.
type commandRequest struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// handleListCommands returns the command names the commander accepts.
func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commands": gateway.Commands(),
	})
}

// handleSendCommand sends a command to a connected charge point and waits
// for its reply. Outcomes at the charge point, including Offline and
// Rejected, are 200 responses carrying the structured result.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	result := s.gw.Commander().Send(r.Context(), id, req.Command, req.Args)

	attrs := []any{
		"station_id", id,
		"command", req.Command,
		"status", result.Status,
		"request_id", r.Context().Value(ctxKeyRequestID),
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		attrs = append(attrs, "operator", claims.Subject)
	}
	s.logger.Info("operator command", attrs...)

	writeJSON(w, http.StatusOK, result)
}
