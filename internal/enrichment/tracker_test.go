package enrichment

import (
	"testing"
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// testAdvertisement wraps a proximity payload in an advertisement record.
func testAdvertisement(address string, rssi int16, ts time.Time, payload []byte) Advertisement {
	return Advertisement{
		Address:   address,
		RSSI:      rssi,
		Timestamp: ts,
		ManufacturerData: map[uint16][]byte{
			proximity.AppleVendorID: payload,
		},
	}
}

// proPayload builds a valid AirPods Pro 2 payload with the given wire bytes.
func proPayload(status, battery, charge, lid byte) []byte {
	data := make([]byte, 27)
	data[0] = 0x07
	data[1] = 0x19
	data[3] = 0x14
	data[4] = 0x20
	data[5] = status
	data[6] = battery
	data[7] = charge
	data[8] = lid
	return data
}

func TestHandleBroadcastFirstSightingNotifies(t *testing.T) {
	tracker := NewTracker(0)

	var updates []Record
	tracker.OnUpdate(func(r Record) { updates = append(updates, r) })

	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, time.Now(), proPayload(0x2A, 0x98, 0, 0)))

	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	if updates[0].ProductID != 0x2014 {
		t.Errorf("ProductID = %s, want 0x2014", updates[0].ProductID)
	}
	if updates[0].LeftBattery == nil || *updates[0].LeftBattery != 80 {
		t.Errorf("LeftBattery = %v, want 80", updates[0].LeftBattery)
	}
}

func TestHandleBroadcastSuppressesSemanticDuplicates(t *testing.T) {
	tracker := NewTracker(0)

	var updates int
	tracker.OnUpdate(func(Record) { updates++ })

	payload := proPayload(0x2A, 0x98, 0, 0)
	// Same decoded state twice, with a rotated address and different RSSI.
	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, time.Now(), payload))
	tracker.HandleBroadcast(testAdvertisement("11:22:33:44:55:66", -72, time.Now(), payload))

	if updates != 1 {
		t.Errorf("got %d updates, want exactly 1", updates)
	}

	// The stored record must still carry the newest metadata.
	rec, ok := tracker.Latest(0x2014)
	if !ok {
		t.Fatal("Latest() returned absent")
	}
	if rec.Address != "11:22:33:44:55:66" {
		t.Errorf("Address = %q, want rotated address", rec.Address)
	}
	if rec.RSSI != -72 {
		t.Errorf("RSSI = %d, want -72", rec.RSSI)
	}
}

func TestHandleBroadcastNotifiesOnSemanticChange(t *testing.T) {
	tracker := NewTracker(0)

	var updates int
	tracker.OnUpdate(func(Record) { updates++ })

	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, time.Now(), proPayload(0x2A, 0x98, 0, 0)))
	// Battery drops from 80 to 70 on the left pod.
	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, time.Now(), proPayload(0x2A, 0x97, 0, 0)))

	if updates != 2 {
		t.Errorf("got %d updates, want 2", updates)
	}
}

func TestHandleBroadcastDropsUndecodablePayloads(t *testing.T) {
	tracker := NewTracker(0)

	var updates int
	tracker.OnUpdate(func(Record) { updates++ })

	// No Apple vendor entry at all.
	tracker.HandleBroadcast(Advertisement{
		Address:          "AA:BB:CC:DD:EE:01",
		Timestamp:        time.Now(),
		ManufacturerData: map[uint16][]byte{0x0075: {0x01, 0x02}},
	})
	// Apple entry with a non-proximity payload.
	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, time.Now(), []byte{0x10, 0x05, 0x01}))

	if updates != 0 {
		t.Errorf("got %d updates, want 0", updates)
	}
	if got := tracker.AllSeen(); len(got) != 0 {
		t.Errorf("AllSeen() = %d records, want 0", len(got))
	}
}

func TestLatestExpiresAfterStalenessWindow(t *testing.T) {
	tracker := NewTracker(5 * time.Minute)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, current, proPayload(0x2A, 0x98, 0, 0)))

	if _, ok := tracker.Latest(0x2014); !ok {
		t.Fatal("Latest() absent immediately after broadcast")
	}

	// Just inside the window.
	current = current.Add(5 * time.Minute)
	if _, ok := tracker.Latest(0x2014); !ok {
		t.Error("Latest() absent at exactly the staleness boundary")
	}

	// Past the window: treated as absent without any sweep running.
	current = current.Add(time.Second)
	if _, ok := tracker.Latest(0x2014); ok {
		t.Error("Latest() returned a stale record")
	}
	if got := tracker.AllSeen(); len(got) != 0 {
		t.Errorf("AllSeen() = %d records, want 0 after expiry", len(got))
	}
}

func TestAllSeenFiltersPerRecord(t *testing.T) {
	tracker := NewTracker(5 * time.Minute)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	old := proPayload(0x2A, 0x98, 0, 0)
	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:01", -50, current, old))

	// A different model shows up six minutes later.
	maxPayload := make([]byte, 27)
	copy(maxPayload, old)
	maxPayload[3] = 0x0A // AirPods Max
	current = current.Add(6 * time.Minute)
	tracker.HandleBroadcast(testAdvertisement("AA:BB:CC:DD:EE:02", -60, current, maxPayload))

	seen := tracker.AllSeen()
	if len(seen) != 1 {
		t.Fatalf("AllSeen() = %d records, want 1", len(seen))
	}
	if seen[0].ProductID != 0x200A {
		t.Errorf("surviving record = %s, want 0x200A", seen[0].ProductID)
	}
}
