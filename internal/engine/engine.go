package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/enrichment"
	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// DefaultLockoutGrace is how long after EndOperation externally sourced
// connection updates stay suppressed.
const DefaultLockoutGrace = 3 * time.Second

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine is the state correlation engine. It owns the per-product-ID map of
// DeviceState records and is the only writer to it.
//
// All public methods are safe for concurrent use. Handlers are invoked
// concurrently by the three sources; each mutation is atomic relative to
// concurrent queries. Events are emitted after the internal lock has been
// released, so subscribers may call query methods freely.
type Engine struct {
	tracker    *enrichment.Tracker
	pairing    PairingDirectory
	broadcasts BroadcastSource
	audio      AudioRouter // optional; nil leaves AudioDefault false

	lockoutGrace time.Duration

	mu             sync.RWMutex
	states         map[proximity.ProductID]*DeviceState
	locks          map[proximity.ProductID]operationLock
	lastBothInCase map[proximity.ProductID]bool
	enumerating    bool
	started        bool
	stopped        bool

	subscribers []func(Event)
	attention   []func(DeviceState)
	caseOpened  []func(DeviceState)

	logger Logger

	// now is replaceable in tests.
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine wired to its three sources.
//
// tracker and pairing are required. broadcasts may be nil when advertisements
// are fed to the tracker by other means; audio may be nil on platforms with
// no default-output query, in which case AudioDefault stays false.
// A non-positive lockoutGrace falls back to DefaultLockoutGrace.
func New(tracker *enrichment.Tracker, pairing PairingDirectory, broadcasts BroadcastSource, audio AudioRouter, lockoutGrace time.Duration) *Engine {
	if lockoutGrace <= 0 {
		lockoutGrace = DefaultLockoutGrace
	}
	return &Engine{
		tracker:        tracker,
		pairing:        pairing,
		broadcasts:     broadcasts,
		audio:          audio,
		lockoutGrace:   lockoutGrace,
		states:         make(map[proximity.ProductID]*DeviceState),
		locks:          make(map[proximity.ProductID]operationLock),
		lastBothInCase: make(map[proximity.ProductID]bool),
		logger:         noopLogger{},
		now:            time.Now,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Subscribe registers a listener on the unified change-event stream.
// Register all listeners before Start. Delivery is synchronous; a panic in
// one listener is recovered and does not reach the others.
func (e *Engine) Subscribe(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// OnNeedsAttention registers a side-channel listener fired when broadcast
// data arrives for an accessory that is paired but not connected, the cue
// for a consumer to prompt the user to connect.
func (e *Engine) OnNeedsAttention(fn func(DeviceState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attention = append(e.attention, fn)
}

// OnRemovedFromCase registers a side-channel listener fired on a
// both-pods-in-case true-to-false transition.
func (e *Engine) OnRemovedFromCase(fn func(DeviceState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caseOpened = append(e.caseOpened, fn)
}

// Start subscribes to all three sources. The pairing directory replays its
// current contents and signals enumeration complete; individual added events
// during that bulk phase are suppressed in favour of one initial-enumeration
// event per device.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.enumerating = true
	e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)

	e.tracker.OnUpdate(e.handleEnrichment)

	if err := e.pairing.Start(e.ctx, e); err != nil {
		return fmt.Errorf("starting pairing directory: %w", err)
	}
	if e.broadcasts != nil {
		if err := e.broadcasts.Start(e.ctx, e.tracker.HandleBroadcast); err != nil {
			e.pairing.Stop()
			return fmt.Errorf("starting broadcast source: %w", err)
		}
	}
	if e.audio != nil {
		if err := e.audio.Start(e.ctx, e.handleAudioChange); err != nil {
			if e.broadcasts != nil {
				e.broadcasts.Stop()
			}
			e.pairing.Stop()
			return fmt.Errorf("starting audio router: %w", err)
		}
	}

	e.logger.Info("correlation engine started")
	return nil
}

// Stop unsubscribes from all sources and clears in-memory state. Idempotent.
// In-flight operations are not aborted: a BeginOperation with no matching
// EndOperation keeps its product ID locked out, which is a caller bug.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	wasStarted := e.started
	e.stopped = true
	e.mu.Unlock()

	if wasStarted {
		if e.cancel != nil {
			e.cancel()
		}
		if e.audio != nil {
			e.audio.Stop()
		}
		if e.broadcasts != nil {
			e.broadcasts.Stop()
		}
		e.pairing.Stop()
	}

	e.mu.Lock()
	e.states = make(map[proximity.ProductID]*DeviceState)
	e.locks = make(map[proximity.ProductID]operationLock)
	e.lastBothInCase = make(map[proximity.ProductID]bool)
	e.mu.Unlock()

	e.logger.Info("correlation engine stopped")
}

// PairedAdded handles a pairing directory addition. It builds or overwrites
// the record from the paired snapshot, enriched with any cached broadcast
// data for the same product ID.
func (e *Engine) PairedAdded(device PairedDevice) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	st := e.upsertPairedLocked(device)
	suppress := e.enumerating
	snapshot := st.clone()
	e.mu.Unlock()

	if !suppress {
		e.emit(Event{Reason: ReasonPairedAdded, State: snapshot})
	}
}

// PairedUpdated handles a pairing directory update, typically a connection
// flip. Updates arriving inside the product ID's operation lockout window
// are dropped so a lagging OS notification cannot clobber a user action.
func (e *Engine) PairedUpdated(device PairedDevice) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.lockedOutLocked(device.ProductID) {
		e.mu.Unlock()
		e.logger.Debug("paired update dropped during lockout", "product_id", device.ProductID.String())
		return
	}
	if _, known := e.states[device.ProductID]; !known {
		// First sighting via an update: treat as an addition.
		e.mu.Unlock()
		e.PairedAdded(device)
		return
	}
	st := e.upsertPairedLocked(device)
	suppress := e.enumerating
	snapshot := st.clone()
	e.mu.Unlock()

	if !suppress {
		e.emit(Event{Reason: ReasonConnectionChanged, State: snapshot})
	}
}

// PairedRemoved deletes the record for a product ID. A later broadcast for
// the same ID recreates a fresh unpaired-observed record; removal is final
// for the paired identity.
func (e *Engine) PairedRemoved(id proximity.ProductID) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	st, known := e.states[id]
	if !known {
		e.mu.Unlock()
		return
	}
	snapshot := st.clone()
	delete(e.states, id)
	delete(e.lastBothInCase, id)
	e.mu.Unlock()

	e.emit(Event{Reason: ReasonPairedRemoved, State: snapshot})
}

// EnumerationComplete marks the end of the pairing directory's bulk replay
// and emits one initial-enumeration event per device learned during it.
func (e *Engine) EnumerationComplete() {
	e.mu.Lock()
	if e.stopped || !e.enumerating {
		e.mu.Unlock()
		return
	}
	e.enumerating = false
	events := make([]Event, 0, len(e.states))
	for _, st := range e.states {
		if st.Paired {
			events = append(events, Event{Reason: ReasonInitialEnumeration, State: st.clone()})
		}
	}
	e.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].State.ProductID < events[j].State.ProductID })
	for _, ev := range events {
		e.emit(ev)
	}
	e.logger.Info("initial enumeration complete", "devices", len(events))
}

// handleEnrichment merges a tracker update into the unified record.
func (e *Engine) handleEnrichment(rec enrichment.Record) {
	id := rec.ProductID

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}

	// The case-transition comparison always consumes the new record, even
	// when the lockout below drops it for state-merge purposes.
	wasInCase := e.lastBothInCase[id]
	e.lastBothInCase[id] = rec.BothInCase
	openedCase := wasInCase && !rec.BothInCase

	locked := e.lockedOutLocked(id)
	st, known := e.states[id]

	var caseSnapshot DeviceState
	if openedCase {
		if known {
			caseSnapshot = st.clone()
			applyEnrichment(&caseSnapshot, rec)
		} else {
			caseSnapshot = stateFromRecord(rec)
		}
	}

	var events []Event
	var attention *DeviceState
	switch {
	case !known:
		fresh := stateFromRecord(rec)
		e.states[id] = &fresh
		events = append(events, Event{Reason: ReasonUnpairedSeen, State: fresh.clone()})
	case !locked:
		applyEnrichment(st, rec)
		snapshot := st.clone()
		events = append(events, Event{Reason: ReasonBLEDataUpdated, State: snapshot})
		if st.Paired && !st.Connected {
			attention = &snapshot
		}
	default:
		e.logger.Debug("enrichment dropped during lockout", "product_id", id.String())
	}
	e.mu.Unlock()

	if openedCase {
		e.emit(Event{Reason: ReasonRemovedFromCase, State: caseSnapshot})
		e.signal(e.caseOpenedListeners(), caseSnapshot)
	}
	for _, ev := range events {
		e.emit(ev)
	}
	if attention != nil {
		e.signal(e.attentionListeners(), *attention)
	}
}

// handleAudioChange re-queries the default-output predicate for every paired
// device with a known address and applies any flips. Predicate failures mean
// "no information this cycle" and leave the last-known flag untouched.
func (e *Engine) handleAudioChange() {
	if e.audio == nil {
		return
	}

	type candidate struct {
		id      proximity.ProductID
		address string
	}
	e.mu.RLock()
	if e.stopped {
		e.mu.RUnlock()
		return
	}
	ctx := e.ctx
	candidates := make([]candidate, 0, len(e.states))
	for id, st := range e.states {
		if st.Paired && st.Address != "" {
			candidates = append(candidates, candidate{id: id, address: st.Address})
		}
	}
	e.mu.RUnlock()

	for _, c := range candidates {
		isDefault, err := e.audio.IsDefaultOutput(ctx, c.address)
		if err != nil {
			e.logger.Warn("default output query failed", "address", c.address, "error", err)
			continue
		}

		e.mu.Lock()
		st, known := e.states[c.id]
		if !known || !st.Paired || st.AudioDefault == isDefault {
			e.mu.Unlock()
			continue
		}
		st.AudioDefault = isDefault
		if isDefault {
			// Audio cannot route to a disconnected accessory.
			st.Connected = true
		}
		snapshot := st.clone()
		e.mu.Unlock()

		e.emit(Event{Reason: ReasonAudioOutputChanged, State: snapshot})
	}
}

// BeginOperation marks a user-initiated connect/disconnect as in progress
// for the product ID, locking out externally sourced connection updates.
func (e *Engine) BeginOperation(id proximity.ProductID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	e.locks[id] = operationLock{inProgress: true}
	return nil
}

// EndOperation marks the operation finished. The lockout stays active for
// the grace window. On success the user-established connection state
// overwrites the record and a connection-changed event is emitted.
func (e *Engine) EndOperation(id proximity.ProductID, success, connected, audioConnected bool) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.locks[id] = operationLock{completedAt: e.now()}

	var snapshot *DeviceState
	if success {
		if st, known := e.states[id]; known {
			st.Connected = connected
			st.AudioDefault = audioConnected
			s := st.clone()
			snapshot = &s
		}
	}
	e.mu.Unlock()

	if snapshot != nil {
		e.emit(Event{Reason: ReasonConnectionChanged, State: *snapshot})
	}
	return nil
}

// All returns a snapshot of every known device, ordered by product ID.
func (e *Engine) All() []DeviceState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	all := make([]DeviceState, 0, len(e.states))
	for _, st := range e.states {
		all = append(all, st.clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ProductID < all[j].ProductID })
	return all
}

// Paired returns a snapshot of every paired device, ordered by product ID.
func (e *Engine) Paired() []DeviceState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	paired := make([]DeviceState, 0, len(e.states))
	for _, st := range e.states {
		if st.Paired {
			paired = append(paired, st.clone())
		}
	}
	sort.Slice(paired, func(i, j int) bool { return paired[i].ProductID < paired[j].ProductID })
	return paired
}

// ByProductID returns the record for one product ID.
func (e *Engine) ByProductID(id proximity.ProductID) (DeviceState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, known := e.states[id]
	if !known {
		return DeviceState{}, false
	}
	return st.clone(), true
}

// upsertPairedLocked builds or overwrites a record from a paired snapshot,
// merging any cached enrichment. Caller holds e.mu.
func (e *Engine) upsertPairedLocked(device PairedDevice) *DeviceState {
	st, known := e.states[device.ProductID]
	if !known {
		st = &DeviceState{ProductID: device.ProductID}
		if name, ok := proximity.ModelName(device.ProductID); ok {
			st.Model = name
		}
		e.states[device.ProductID] = st
	}
	st.Paired = true
	st.DeviceID = device.DeviceID
	st.Name = device.Name
	st.Address = device.Address
	st.Connected = device.Connected

	if rec, ok := e.tracker.Latest(device.ProductID); ok {
		applyEnrichment(st, rec)
		e.lastBothInCase[device.ProductID] = rec.BothInCase
	}
	return st
}

// lockedOutLocked reports whether the product ID is inside its operation
// lockout window. Caller holds e.mu.
func (e *Engine) lockedOutLocked(id proximity.ProductID) bool {
	lock, ok := e.locks[id]
	return ok && lock.active(e.now(), e.lockoutGrace)
}

// emit delivers one event to every subscriber, isolating panics.
func (e *Engine) emit(ev Event) {
	e.mu.RLock()
	subs := make([]func(Event), len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.RUnlock()

	for _, fn := range subs {
		e.deliver(func() { fn(ev) }, string(ev.Reason))
	}
}

// signal delivers a side-channel notification to a listener set.
func (e *Engine) signal(listeners []func(DeviceState), st DeviceState) {
	for _, fn := range listeners {
		e.deliver(func() { fn(st) }, "side_signal")
	}
}

func (e *Engine) deliver(fn func(), kind string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panic recovered", "kind", kind, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) attentionListeners() []func(DeviceState) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]func(DeviceState), len(e.attention))
	copy(out, e.attention)
	return out
}

func (e *Engine) caseOpenedListeners() []func(DeviceState) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]func(DeviceState), len(e.caseOpened))
	copy(out, e.caseOpened)
	return out
}

// applyEnrichment overwrites all broadcast-derived fields on a record.
// Identity and connection fields are untouched; the address only updates
// for broadcast-only records, where no pairing address exists.
func applyEnrichment(st *DeviceState, rec enrichment.Record) {
	if st.Model == "" {
		st.Model = rec.Model
	}
	if !st.Paired {
		st.Address = rec.Address
	}
	st.BroadcastSeen = true
	st.RSSI = rec.RSSI
	st.LastSeen = rec.UpdatedAt
	st.LeftBattery = cloneBattery(rec.LeftBattery)
	st.RightBattery = cloneBattery(rec.RightBattery)
	st.CaseBattery = cloneBattery(rec.CaseBattery)
	st.LeftCharging = rec.LeftCharging
	st.RightCharging = rec.RightCharging
	st.CaseCharging = rec.CaseCharging
	st.LeftInEar = rec.LeftInEar
	st.RightInEar = rec.RightInEar
	st.BothInCase = rec.BothInCase
	st.LidOpen = rec.LidOpen
}

// stateFromRecord builds a fresh unpaired-observed record from broadcast
// data alone.
func stateFromRecord(rec enrichment.Record) DeviceState {
	st := DeviceState{
		ProductID: rec.ProductID,
		Model:     rec.Model,
		Name:      rec.Model,
	}
	applyEnrichment(&st, rec)
	return st
}
