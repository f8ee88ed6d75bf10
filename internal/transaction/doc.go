// Package transaction owns the lifecycle of metered charging sessions.
//
// Manager.Start authorises the idTag, allocates a session ID and stores an
// open Session; Manager.Stop closes it and computes consumed energy. Domain
// outcomes are returned as OCPP authorization statuses, never as errors:
//
//	Start: tag not Accepted     -> ID 0 and the tag's status
//	Start: store failure        -> ID 0 and ConcurrentTx
//	Stop:  unknown session ID   -> Expired
//	Stop:  session already closed -> Invalid
//
// # Session IDs
//
// IDs come from an AUTOINCREMENT column and are allocated inside the insert
// transaction, so an ID is never handed out twice.
//
// # One open session per connector
//
// A StartTransaction on a connector that already has an open session closes
// the old one in the same transaction (reason Other, ending at the new
// session's start and meter value) before the new one is inserted. A partial
// unique index on (station_id, connector_id) WHERE end_time IS NULL backs
// this up in the schema.
//
// # Energy
//
// Meter values are in Wh. EnergyKWh is (meterStop - meterStart) / 1000 and is
// left unset when meterStop is lower than meterStart.
package transaction
