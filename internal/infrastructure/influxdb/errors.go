package influxdb

import "errors"

// Sentinel errors for telemetry writes, matchable with errors.Is.
var (
	// ErrNotConnected indicates the client has no server connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a write was rejected. Most write errors
	// arrive asynchronously via the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates the influxdb config section is turned off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
