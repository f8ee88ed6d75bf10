// Package influxdb mirrors meter readings and session totals into InfluxDB.
//
// SQLite stays the system of record; InfluxDB receives a copy of every
// persisted reading for dashboards and long-range energy queries. Writes go
// through the non-blocking, batched write API, so a slow or unreachable
// InfluxDB never stalls an OCPP exchange.
//
// # Measurements
//
//	meter_values   tags: station_id, connector_id, measurand, unit, phase, location, context
//	               fields: value (float), raw (non-numeric values), session_id
//	sessions       tags: station_id, connector_id, stop_reason
//	               fields: session_id, energy_kwh, meter_start, meter_stop, duration_s
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ingestor.SetSink(client)
//
// Batch errors are delivered asynchronously through SetOnError.
package influxdb
