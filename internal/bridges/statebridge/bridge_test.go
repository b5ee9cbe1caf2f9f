package statebridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
)

// fakePublisher records published messages.
type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	fail     bool
}

type publishedMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload, retained: retained})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishRetained(topic string, payload []byte) error {
	return p.Publish(topic, payload, 1, true)
}

func (p *fakePublisher) byTopic(topic string) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedMessage
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func testState() engine.DeviceState {
	left, right := 80, 90
	return engine.DeviceState{
		ProductID:     0x2014,
		Model:         "AirPods Pro (2nd generation)",
		Paired:        true,
		Name:          "Test AirPods",
		Connected:     true,
		BroadcastSeen: true,
		LeftBattery:   &left,
		RightBattery:  &right,
	}
}

func TestHandleEvent_PublishesEventAndRetainedState(t *testing.T) {
	pub := &fakePublisher{}
	bridge := New(pub, 1)

	bridge.handleEvent(engine.Event{
		Reason: engine.ReasonBLEDataUpdated,
		State:  testState(),
	})

	events := pub.byTopic("podpilot/event/ble_data_updated")
	if len(events) != 1 {
		t.Fatalf("event messages = %d, want 1", len(events))
	}
	if events[0].retained {
		t.Error("event message retained = true, want false")
	}

	var ev engine.Event
	if err := json.Unmarshal(events[0].payload, &ev); err != nil {
		t.Fatalf("event payload not JSON: %v", err)
	}
	if ev.Reason != engine.ReasonBLEDataUpdated {
		t.Errorf("reason = %q", ev.Reason)
	}
	if ev.State.LeftBattery == nil || *ev.State.LeftBattery != 80 {
		t.Error("battery lost in round trip")
	}

	states := pub.byTopic("podpilot/device/0x2014/state")
	if len(states) != 1 {
		t.Fatalf("state messages = %d, want 1", len(states))
	}
	if !states[0].retained {
		t.Error("state message retained = false, want true")
	}
}

func TestHandleEvent_PairedRemovedClearsRetainedState(t *testing.T) {
	pub := &fakePublisher{}
	bridge := New(pub, 1)

	bridge.handleEvent(engine.Event{
		Reason: engine.ReasonPairedRemoved,
		State:  testState(),
	})

	states := pub.byTopic("podpilot/device/0x2014/state")
	if len(states) != 1 {
		t.Fatalf("state messages = %d, want 1", len(states))
	}
	if len(states[0].payload) != 0 {
		t.Errorf("retained payload = %q, want empty to clear", states[0].payload)
	}
	if !states[0].retained {
		t.Error("clear message retained = false, want true")
	}

	// The removal event itself still goes out.
	if len(pub.byTopic("podpilot/event/paired_removed")) != 1 {
		t.Error("paired_removed event not published")
	}
}

func TestAlerts(t *testing.T) {
	pub := &fakePublisher{}
	bridge := New(pub, 1)

	bridge.handleAttention(testState())
	bridge.handleCaseOpened(testState())

	if got := pub.byTopic("podpilot/alert/attention"); len(got) != 1 {
		t.Errorf("attention alerts = %d, want 1", len(got))
	}
	if got := pub.byTopic("podpilot/alert/removed_from_case"); len(got) != 1 {
		t.Errorf("removed_from_case alerts = %d, want 1", len(got))
	}
}

func TestHandleEvent_PublishFailureDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{fail: true}
	bridge := New(pub, 1)

	bridge.handleEvent(engine.Event{
		Reason: engine.ReasonBLEDataUpdated,
		State:  testState(),
	})
	bridge.handleAttention(testState())
}
