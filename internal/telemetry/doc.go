// Package telemetry forwards broadcast-derived readings to InfluxDB.
//
// On every ble_data_updated or initial_enumeration event carrying broadcast
// data, the collector writes battery levels per component and the observed
// signal strength. Writes are non-blocking; the InfluxDB client batches and
// flushes them in the background.
package telemetry
