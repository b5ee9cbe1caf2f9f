package engine

import "errors"

// Sentinel errors for engine lifecycle misuse. These indicate programmer
// error, not runtime conditions, and are meant to fail loudly at the call
// site rather than be swallowed.
var (
	// ErrAlreadyStarted is returned by Start on a running engine.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrStopped is returned when operating on a stopped engine.
	ErrStopped = errors.New("engine: stopped")
)
