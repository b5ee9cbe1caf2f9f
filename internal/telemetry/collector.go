package telemetry

import (
	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
)

// Writer is the metrics surface the collector needs. *influxdb.Client
// satisfies it.
type Writer interface {
	WriteBatteryLevels(productID, model string, left, right, caseLevel *int)
	WriteSignalStrength(productID string, rssi int)
}

// Collector turns engine events into time-series points.
type Collector struct {
	writer Writer
}

// NewCollector creates a collector writing through w.
func NewCollector(w Writer) *Collector {
	return &Collector{writer: w}
}

// Attach subscribes the collector to the engine's event stream.
// Call before engine.Start so no events are missed.
func (c *Collector) Attach(eng *engine.Engine) {
	eng.Subscribe(c.handleEvent)
}

// handleEvent writes points for events that carry fresh broadcast data.
// Pairing-only events have nothing to measure.
func (c *Collector) handleEvent(ev engine.Event) {
	switch ev.Reason {
	case engine.ReasonBLEDataUpdated, engine.ReasonUnpairedSeen,
		engine.ReasonRemovedFromCase, engine.ReasonInitialEnumeration:
	default:
		return
	}

	st := ev.State
	if !st.BroadcastSeen {
		return
	}

	id := st.ProductID.String()
	c.writer.WriteBatteryLevels(id, st.Model, st.LeftBattery, st.RightBattery, st.CaseBattery)
	if st.RSSI != 0 {
		c.writer.WriteSignalStrength(id, int(st.RSSI))
	}
}
