// Package meter stores energy readings from MeterValues and StopTransaction.
//
// Every reading belongs to a session. Ingestor.Ingest resolves it from the
// explicit transactionId when that session is open and owned by the
// reporting station, and otherwise from the open session on the reported
// connector. Readings with no resolvable session are dropped.
//
// Persisted readings are also handed to an optional Sink, normally the
// InfluxDB writer, for dashboards and long-term analysis.
package meter
