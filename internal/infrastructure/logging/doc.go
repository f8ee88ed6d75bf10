// Package logging provides structured logging for the OCPP gateway.
//
// It wraps Go's standard log/slog package so every component logs with the
// same format and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("charge point connected", "charge_point_id", id)
//	logger.Component("watchdog").Warn("sweep failed", "error", err)
//
// # Security
//
// Never log secrets: JWT secrets, bearer tokens, MQTT passwords or the
// InfluxDB token. Id tags are customer identifiers and are logged only at
// debug level.
package logging
