package enrichment

import (
	"sync"
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// DefaultStaleAfter is how long a record stays visible after its last update.
const DefaultStaleAfter = 5 * time.Minute

// Logger is the minimal logging interface the tracker needs.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Tracker keeps the latest enrichment Record per product ID.
//
// All public methods are safe for concurrent use. Update notifications are
// delivered synchronously from HandleBroadcast, after the internal lock has
// been released.
type Tracker struct {
	mu      sync.RWMutex
	records map[proximity.ProductID]Record

	staleAfter time.Duration
	onUpdate   func(Record)
	logger     Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewTracker creates a tracker with the given staleness window.
// A non-positive window falls back to DefaultStaleAfter.
func NewTracker(staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Tracker{
		records:    make(map[proximity.ProductID]Record),
		staleAfter: staleAfter,
		logger:     noopLogger{},
		now:        time.Now,
	}
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// OnUpdate registers the callback invoked when an accessory is seen for the
// first time or its semantic state changes. Must be called before broadcasts
// start flowing.
func (t *Tracker) OnUpdate(fn func(Record)) {
	t.onUpdate = fn
}

// HandleBroadcast ingests one raw advertisement.
//
// Payloads without Apple manufacturer data, undecodable payloads and unknown
// models are dropped silently. The stored record is replaced unconditionally
// so metadata stays fresh, but the update callback only fires on the first
// sighting of a product ID or on a semantic change.
func (t *Tracker) HandleBroadcast(adv Advertisement) {
	payload, ok := adv.ManufacturerData[proximity.AppleVendorID]
	if !ok {
		return
	}
	msg := proximity.ParseMessage(payload)
	if msg == nil {
		return
	}
	if adv.Timestamp.IsZero() {
		adv.Timestamp = t.now()
	}
	rec := newRecord(msg, adv)

	t.mu.Lock()
	prev, seen := t.records[rec.ProductID]
	t.records[rec.ProductID] = rec
	t.mu.Unlock()

	if seen && rec.SemanticallyEqual(prev) {
		return
	}

	t.logger.Debug("enrichment updated",
		"product_id", rec.ProductID.String(),
		"model", rec.Model,
		"first_sighting", !seen,
	)
	if t.onUpdate != nil {
		t.onUpdate(rec)
	}
}

// Latest returns the current record for a product ID, if one exists and is
// younger than the staleness window.
func (t *Tracker) Latest(id proximity.ProductID) (Record, bool) {
	t.mu.RLock()
	rec, ok := t.records[id]
	t.mu.RUnlock()

	if !ok || t.stale(rec) {
		return Record{}, false
	}
	return rec, true
}

// AllSeen returns every tracked record younger than the staleness window.
func (t *Tracker) AllSeen() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fresh := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if !t.stale(rec) {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}

func (t *Tracker) stale(rec Record) bool {
	return t.now().Sub(rec.UpdatedAt) > t.staleAfter
}
