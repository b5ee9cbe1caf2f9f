package bluez

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/giulioungaretti/PodPilot-sub000/internal/enrichment"
)

// AdvertisementWatcher runs LE discovery and implements
// engine.BroadcastSource. Every ManufacturerData change on any device object
// is forwarded as a raw advertisement; filtering and decoding belong to the
// enrichment tracker.
type AdvertisementWatcher struct {
	conn   *Conn
	logger Logger

	signals chan *dbus.Signal
	done    chan struct{}
}

// NewAdvertisementWatcher creates a watcher over an open BlueZ connection.
func NewAdvertisementWatcher(conn *Conn) *AdvertisementWatcher {
	return &AdvertisementWatcher{
		conn:   conn,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *AdvertisementWatcher) SetLogger(logger Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Start begins LE discovery and delivers advertisement records until Stop.
func (w *AdvertisementWatcher) Start(ctx context.Context, deliver func(enrichment.Advertisement)) error {
	adapter := w.conn.adapterObject()

	// LE only; proximity messages never ride on BR/EDR.
	filter := map[string]interface{}{
		"Transport": "le",
	}
	if err := adapter.Call(adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return fmt.Errorf("set discovery filter: %w", err)
	}
	if err := adapter.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	w.conn.addMatch(propsChangedSignal)
	w.signals = make(chan *dbus.Signal, signalBufferSize)
	w.conn.bus.Signal(w.signals)
	w.done = make(chan struct{})

	go w.watch(ctx, deliver)
	return nil
}

// Stop ends discovery and detaches from the bus.
func (w *AdvertisementWatcher) Stop() {
	if w.signals == nil {
		return
	}
	close(w.done)
	w.conn.bus.RemoveSignal(w.signals)
	if err := w.conn.adapterObject().Call(adapterIface+".StopDiscovery", 0).Err; err != nil {
		w.logger.Warn("stop discovery failed", "error", err)
	}
}

func (w *AdvertisementWatcher) watch(ctx context.Context, deliver func(enrichment.Advertisement)) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case sig, ok := <-w.signals:
			if !ok {
				return
			}
			if adv, ok := advertisementFromSignal(sig); ok {
				deliver(adv)
			}
		}
	}
}

// advertisementFromSignal extracts a raw advertisement from a Device1
// PropertiesChanged signal carrying ManufacturerData.
func advertisementFromSignal(sig *dbus.Signal) (enrichment.Advertisement, bool) {
	if sig.Name != propsChangedSignal || len(sig.Body) < 2 {
		return enrichment.Advertisement{}, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return enrichment.Advertisement{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return enrichment.Advertisement{}, false
	}

	mfgVar, ok := changed["ManufacturerData"]
	if !ok {
		return enrichment.Advertisement{}, false
	}
	mfgData, ok := mfgVar.Value().(map[uint16]dbus.Variant)
	if !ok {
		return enrichment.Advertisement{}, false
	}

	payloads := make(map[uint16][]byte, len(mfgData))
	for vendor, v := range mfgData {
		if b, ok := v.Value().([]byte); ok {
			payloads[vendor] = b
		}
	}
	if len(payloads) == 0 {
		return enrichment.Advertisement{}, false
	}

	var rssi int16
	if v, ok := changed["RSSI"]; ok {
		if r, ok := v.Value().(int16); ok {
			rssi = r
		}
	}

	return enrichment.Advertisement{
		Address:          addressFromPath(sig.Path),
		RSSI:             rssi,
		Timestamp:        time.Now(),
		ManufacturerData: payloads,
	}, true
}
