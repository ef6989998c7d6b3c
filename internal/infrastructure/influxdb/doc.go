// Package influxdb exports numeric tick readings to InfluxDB v2.
//
// Telemetry is optional and off by default; when disabled the gateway
// never creates a client. Writes are non-blocking and batched by the
// underlying client, so a slow or unreachable server cannot stall the
// tick loop.
package influxdb
