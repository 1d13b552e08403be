// Package influxdb writes access telemetry to InfluxDB v2.
//
// Scan outcomes and door commands become measurement points, written through
// the non-blocking batched API so telemetry never sits on the request path.
// The integration is optional; when disabled the gateway runs without it.
package influxdb
