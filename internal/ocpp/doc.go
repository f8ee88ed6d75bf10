// Package ocpp implements the OCPP 1.6-J message envelope and the payload
// types exchanged between the gateway and its charge points.
//
// # Envelope
//
// Every WebSocket text frame is a JSON array whose first element is the
// message type:
//
//	[2, "<uniqueId>", "<action>", {payload}]           // Call
//	[3, "<uniqueId>", {payload}]                       // CallResult
//	[4, "<uniqueId>", "<errorCode>", "<desc>", {details}] // CallError
//
// Parse decodes a frame and Frame.MarshalJSON encodes one. The correlation id
// of a CallResult or CallError always echoes the Call it answers.
//
// # Payloads
//
// Request and response structs carry the OCPP JSON field names. Requests that
// can be checked implement Validator; a failed check is a *ConstraintError
// that maps onto the matching OCPP error code.
//
// # Timestamps
//
// DateTime accepts the RFC 3339 variants charge points send in practice,
// including timestamps without a zone, which are read as UTC.
package ocpp
