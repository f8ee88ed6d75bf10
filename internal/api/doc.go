// Package api serves the charge point WebSocket endpoint and the operator
// REST API.
//
// # Endpoints
//
//	GET  /ocpp/{chargePointID}             OCPP 1.6-J WebSocket (subprotocol ocpp1.6)
//	GET  /api/v1/health                    liveness and store health (no auth)
//	GET  /api/v1/connections               live charge point connections
//	GET  /api/v1/chargers                  stations with connectors and open sessions
//	GET  /api/v1/chargers/{id}             one station
//	GET  /api/v1/chargers/{id}/messages    message log of one station
//	GET  /api/v1/commands                  command names accepted by the commander
//	POST /api/v1/chargers/{id}/commands    send a command {command, args}
//
// The /api/v1 routes other than health require an HS256 bearer token. Read
// routes need the viewer role; commands need operator.
//
// # Commands
//
// A command response is always 200 with the structured result, whatever the
// outcome at the charge point:
//
//	{"status": "Offline", "error": "charger not connected"}
//	{"status": "Accepted", "currentTime": "..."}
//
// The WebSocket endpoint is not behind the bearer middleware; charge points
// authenticate by identity alone.
package api
