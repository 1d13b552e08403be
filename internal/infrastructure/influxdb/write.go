package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteScan records an RFID scan outcome.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Granted/denied counts per tag drive the access dashboards.
func (c *Client) WriteScan(rfid string, granted, registered bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scans",
		map[string]string{
			"rfid": rfid,
		},
		map[string]interface{}{
			"granted":    granted,
			"registered": registered,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDoorCommand records a dispatched door command and its outcome.
//
// command is one of "open", "toggle-mode", "cache"; outcome "ok",
// "unreachable", or "rejected".
func (c *Client) WriteDoorCommand(command, outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"door_commands",
		map[string]string{
			"command": command,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
