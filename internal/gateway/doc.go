// Package gateway owns the live OCPP connections of the charge point fleet.
//
// # Architecture
//
//	           WebSocket (ocpp1.6)
//	                  │
//	                  ▼
//	┌──────────────────────────────────┐      ┌──────────────────────┐
//	│ Conn (one per charge point)      │      │ Registry             │
//	│  readLoop: frames in order       │◀────▶│  id -> *Conn         │
//	│  writeLoop: sole socket writer   │      │  online/offline I/O  │
//	│  pending: outbound Call table    │      └──────────────────────┘
//	└──────────────┬───────────────────┘                 ▲
//	               │ Call frames                         │ Lookup / snapshot
//	               ▼                                     │
//	┌──────────────────────────────────┐      ┌──────────┴───────────┐
//	│ Router: action -> typed handler  │      │ Commander, Watchdog  │
//	└──────────────┬───────────────────┘      └──────────────────────┘
//	               ▼
//	  station · authorization · transaction · meter
//
// # Connection lifecycle
//
// A Conn moves Open -> Closing -> Closed. Registration marks the station
// online; closing unregisters it, which marks the station offline and forces
// its connectors to Unknown. A reconnect displaces the old Conn, and the
// displaced Conn's close does not evict its successor.
//
// # Errors
//
// Unknown actions, undecodable payloads and handler panics are answered
// with a CallError and the connection stays open. A malformed envelope or a
// socket error closes the connection. Domain outcomes such as an invalid
// idTag travel in the normal CallResult.
package gateway
