package engine

import (
	"context"

	"github.com/giulioungaretti/PodPilot-sub000/internal/enrichment"
	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// PairingSink receives pairing directory events. The Engine implements it;
// watchers deliver their callbacks through this interface.
//
// Delivery contract: the watcher replays the current directory contents as
// PairedAdded calls, then calls EnumerationComplete exactly once, then
// delivers live deltas. Calls may come from any goroutine.
type PairingSink interface {
	PairedAdded(device PairedDevice)
	PairedUpdated(device PairedDevice)
	PairedRemoved(id proximity.ProductID)
	EnumerationComplete()
}

// PairingDirectory is the OS pairing database collaborator. It owns all OS
// waiting; the engine only ever sees discrete callbacks.
type PairingDirectory interface {
	// Start begins watching and performs the initial enumeration against
	// the sink. It must not block beyond the initial listing.
	Start(ctx context.Context, sink PairingSink) error
	// Stop unsubscribes. Events must not be delivered after Stop returns.
	Stop()
}

// BroadcastSource delivers raw BLE advertisements. The engine feeds these
// straight into the enrichment tracker.
type BroadcastSource interface {
	Start(ctx context.Context, deliver func(enrichment.Advertisement)) error
	Stop()
}

// AudioRouter is the audio subsystem collaborator: a change notifier plus an
// async predicate for "is this address the current default output".
// Implementations are free to be slow; the engine never calls IsDefaultOutput
// while holding its own lock.
type AudioRouter interface {
	Start(ctx context.Context, onChange func()) error
	Stop()
	IsDefaultOutput(ctx context.Context, address string) (bool, error)
}
