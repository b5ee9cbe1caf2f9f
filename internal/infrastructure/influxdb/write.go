package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBatteryLevels writes a battery measurement for a tracked accessory.
//
// Absent components are passed as nil pointers and are omitted from the
// point. The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - productID: Product identifier tag (e.g., "0x2014")
//   - model: Human-readable model tag (e.g., "AirPods Pro (2nd generation)")
//   - left, right, caseLevel: Battery percentages, nil when unknown
//
// Example:
//
//	client.WriteBatteryLevels("0x2014", "AirPods Pro (2nd generation)", &left, &right, nil)
func (c *Client) WriteBatteryLevels(productID, model string, left, right, caseLevel *int) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, 3)
	if left != nil {
		fields["left_percent"] = *left
	}
	if right != nil {
		fields["right_percent"] = *right
	}
	if caseLevel != nil {
		fields["case_percent"] = *caseLevel
	}
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"product_id": productID,
			"model":      model,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSignalStrength writes the RSSI observed on the latest broadcast.
//
// Parameters:
//   - productID: Product identifier tag
//   - rssi: Received signal strength in dBm (negative values)
func (c *Client) WriteSignalStrength(productID string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"signal",
		map[string]string{
			"product_id": productID,
		},
		map[string]interface{}{
			"rssi_dbm": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("daemon_stats",
//	    map[string]string{"host": "living-room-pi"},
//	    map[string]interface{}{"tracked_devices": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., a broadcast seen earlier).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
