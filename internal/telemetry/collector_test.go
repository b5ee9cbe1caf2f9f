package telemetry

import (
	"testing"

	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
)

// fakeWriter records written points.
type fakeWriter struct {
	batteries []batteryPoint
	signals   []signalPoint
}

type batteryPoint struct {
	productID, model  string
	left, right, kase *int
}

type signalPoint struct {
	productID string
	rssi      int
}

func (w *fakeWriter) WriteBatteryLevels(productID, model string, left, right, caseLevel *int) {
	w.batteries = append(w.batteries, batteryPoint{productID, model, left, right, caseLevel})
}

func (w *fakeWriter) WriteSignalStrength(productID string, rssi int) {
	w.signals = append(w.signals, signalPoint{productID, rssi})
}

func broadcastEvent(reason engine.ChangeReason) engine.Event {
	left, right := 80, 90
	return engine.Event{
		Reason: reason,
		State: engine.DeviceState{
			ProductID:     0x2014,
			Model:         "AirPods Pro (2nd generation)",
			BroadcastSeen: true,
			RSSI:          -55,
			LeftBattery:   &left,
			RightBattery:  &right,
		},
	}
}

func TestHandleEvent_WritesBatteryAndSignal(t *testing.T) {
	w := &fakeWriter{}
	c := NewCollector(w)

	c.handleEvent(broadcastEvent(engine.ReasonBLEDataUpdated))

	if len(w.batteries) != 1 {
		t.Fatalf("battery points = %d, want 1", len(w.batteries))
	}
	bp := w.batteries[0]
	if bp.productID != "0x2014" {
		t.Errorf("productID = %q", bp.productID)
	}
	if bp.left == nil || *bp.left != 80 {
		t.Errorf("left = %v, want 80", bp.left)
	}
	if bp.kase != nil {
		t.Errorf("case = %v, want nil", bp.kase)
	}

	if len(w.signals) != 1 {
		t.Fatalf("signal points = %d, want 1", len(w.signals))
	}
	if w.signals[0].rssi != -55 {
		t.Errorf("rssi = %d, want -55", w.signals[0].rssi)
	}
}

func TestHandleEvent_SkipsPairingOnlyEvents(t *testing.T) {
	w := &fakeWriter{}
	c := NewCollector(w)

	for _, reason := range []engine.ChangeReason{
		engine.ReasonPairedAdded,
		engine.ReasonPairedRemoved,
		engine.ReasonConnectionChanged,
		engine.ReasonAudioOutputChanged,
	} {
		c.handleEvent(broadcastEvent(reason))
	}

	if len(w.batteries) != 0 || len(w.signals) != 0 {
		t.Errorf("points written for pairing-only events: %d battery, %d signal",
			len(w.batteries), len(w.signals))
	}
}

func TestHandleEvent_SkipsWithoutBroadcastData(t *testing.T) {
	w := &fakeWriter{}
	c := NewCollector(w)

	ev := broadcastEvent(engine.ReasonInitialEnumeration)
	ev.State.BroadcastSeen = false
	c.handleEvent(ev)

	if len(w.batteries) != 0 {
		t.Errorf("battery points = %d, want 0", len(w.batteries))
	}
}

func TestHandleEvent_ZeroRSSINotWritten(t *testing.T) {
	w := &fakeWriter{}
	c := NewCollector(w)

	ev := broadcastEvent(engine.ReasonBLEDataUpdated)
	ev.State.RSSI = 0
	c.handleEvent(ev)

	if len(w.batteries) != 1 {
		t.Errorf("battery points = %d, want 1", len(w.batteries))
	}
	if len(w.signals) != 0 {
		t.Errorf("signal points = %d, want 0", len(w.signals))
	}
}
