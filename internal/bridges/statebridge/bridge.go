package statebridge

import (
	"encoding/json"
	"fmt"

	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/mqtt"
)

// Publisher is the broker surface the bridge needs. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// Logger is the minimal logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Bridge mirrors engine events onto MQTT topics.
//
// Thread Safety:
//   - The engine delivers events synchronously from its own goroutines;
//     Bridge holds no mutable state beyond its configuration, so all
//     callbacks are safe to run concurrently.
type Bridge struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// New creates a bridge publishing through pub at the given QoS.
func New(pub Publisher, qos byte) *Bridge {
	return &Bridge{
		pub:    pub,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for publish failures.
func (b *Bridge) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Attach registers the bridge on the engine's event stream and side
// channels. Call before engine.Start so no events are missed.
func (b *Bridge) Attach(eng *engine.Engine) {
	eng.Subscribe(b.handleEvent)
	eng.OnNeedsAttention(b.handleAttention)
	eng.OnRemovedFromCase(b.handleCaseOpened)
}

// handleEvent publishes the event to its reason topic and refreshes the
// retained per-device state snapshot.
func (b *Bridge) handleEvent(ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("marshalling event", "reason", ev.Reason, "error", err)
		return
	}

	if err := b.pub.Publish(b.topics.Event(string(ev.Reason)), payload, b.qos, false); err != nil {
		b.logger.Warn("publishing event", "reason", ev.Reason, "error", err)
	}

	stateTopic := b.topics.DeviceState(ev.State.ProductID.String())

	// Unpairing drops the device from the engine; clear the retained
	// snapshot so late subscribers do not see a ghost.
	if ev.Reason == engine.ReasonPairedRemoved {
		if err := b.pub.PublishRetained(stateTopic, nil); err != nil {
			b.logger.Warn("clearing retained state", "product_id", ev.State.ProductID, "error", err)
		}
		return
	}

	state, err := json.Marshal(ev.State)
	if err != nil {
		b.logger.Warn("marshalling state", "product_id", ev.State.ProductID, "error", err)
		return
	}
	if err := b.pub.PublishRetained(stateTopic, state); err != nil {
		b.logger.Warn("publishing retained state", "product_id", ev.State.ProductID, "error", err)
	}
}

// handleAttention publishes a needs-attention alert: a paired accessory was
// heard over the air while the OS reports it disconnected.
func (b *Bridge) handleAttention(st engine.DeviceState) {
	b.publishAlert(b.topics.AlertAttention(), st)
}

// handleCaseOpened publishes a removed-from-case alert.
func (b *Bridge) handleCaseOpened(st engine.DeviceState) {
	b.publishAlert(b.topics.AlertRemovedFromCase(), st)
}

func (b *Bridge) publishAlert(topic string, st engine.DeviceState) {
	payload, err := json.Marshal(st)
	if err != nil {
		b.logger.Warn("marshalling alert", "topic", topic, "error", err)
		return
	}
	if err := b.pub.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Warn("publishing alert", "topic", topic, "error", err)
		return
	}
	b.logger.Debug("alert published", "topic", topic, "product_id", fmt.Sprint(st.ProductID))
}
