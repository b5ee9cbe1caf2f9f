package bluez

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// PairingWatcher watches the BlueZ pairing database and implements
// engine.PairingDirectory.
//
// Identity mapping: a BlueZ device object path is the OS device handle; the
// product ID parsed from its Modalias property is the correlation key.
type PairingWatcher struct {
	conn   *Conn
	logger Logger

	mu      sync.Mutex
	devices map[dbus.ObjectPath]engine.PairedDevice
	sink    engine.PairingSink

	signals chan *dbus.Signal
	done    chan struct{}
}

// NewPairingWatcher creates a watcher over an open BlueZ connection.
func NewPairingWatcher(conn *Conn) *PairingWatcher {
	return &PairingWatcher{
		conn:    conn,
		logger:  noopLogger{},
		devices: make(map[dbus.ObjectPath]engine.PairedDevice),
	}
}

// SetLogger sets the logger for the watcher.
func (w *PairingWatcher) SetLogger(logger Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Start subscribes to pairing signals, replays the current directory into
// the sink and signals enumeration complete, then follows live deltas from a
// background goroutine.
func (w *PairingWatcher) Start(ctx context.Context, sink engine.PairingSink) error {
	w.mu.Lock()
	w.sink = sink
	w.mu.Unlock()

	// Matches must be in place before the enumeration so no delta is lost.
	w.conn.addMatch(interfacesAddedSignal)
	w.conn.addMatch(interfacesRemovedSignal)
	w.conn.addMatch(propsChangedSignal)
	w.signals = make(chan *dbus.Signal, signalBufferSize)
	w.conn.bus.Signal(w.signals)
	w.done = make(chan struct{})

	if err := w.enumerate(sink); err != nil {
		return err
	}

	go w.watch(ctx)
	return nil
}

// Stop detaches from the bus. No callbacks are delivered after Stop returns.
func (w *PairingWatcher) Stop() {
	if w.signals == nil {
		return
	}
	close(w.done)
	w.conn.bus.RemoveSignal(w.signals)
}

// enumerate replays the adapter's paired devices into the sink.
func (w *PairingWatcher) enumerate(sink engine.PairingSink) error {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := w.conn.bus.Object(busName, "/").
		Call(objectManagerIface+".GetManagedObjects", 0).
		Store(&objects)
	if err != nil {
		return fmt.Errorf("enumerating paired devices: %w", err)
	}

	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok || !variantBool(props, "Paired") {
			continue
		}
		dev, ok := w.deviceFromProps(path, props)
		if !ok {
			continue
		}
		w.mu.Lock()
		w.devices[path] = dev
		w.mu.Unlock()
		sink.PairedAdded(dev)
	}
	sink.EnumerationComplete()
	return nil
}

// watch dispatches bus signals until Stop or context cancellation.
func (w *PairingWatcher) watch(ctx context.Context) {
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
			w.dispatch(sig)
		}
	}
}

func (w *PairingWatcher) dispatch(sig *dbus.Signal) {
	switch sig.Name {
	case interfacesAddedSignal:
		w.handleInterfacesAdded(sig)
	case interfacesRemovedSignal:
		w.handleInterfacesRemoved(sig)
	case propsChangedSignal:
		w.handlePropertiesChanged(sig)
	}
}

func (w *PairingWatcher) handleInterfacesAdded(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	props, ok := ifaces[deviceIface]
	if !ok || !variantBool(props, "Paired") {
		return
	}
	dev, ok := w.deviceFromProps(path, props)
	if !ok {
		return
	}

	w.mu.Lock()
	w.devices[path] = dev
	sink := w.sink
	w.mu.Unlock()

	w.logger.Debug("paired device added", "path", string(path), "product_id", dev.ProductID.String())
	sink.PairedAdded(dev)
}

func (w *PairingWatcher) handleInterfacesRemoved(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	removed, ok := sig.Body[1].([]string)
	if !ok {
		return
	}
	isDevice := false
	for _, iface := range removed {
		if iface == deviceIface {
			isDevice = true
			break
		}
	}
	if !isDevice {
		return
	}

	w.mu.Lock()
	dev, known := w.devices[path]
	if known {
		delete(w.devices, path)
	}
	sink := w.sink
	w.mu.Unlock()
	if !known {
		return
	}

	w.logger.Debug("paired device removed", "path", string(path), "product_id", dev.ProductID.String())
	sink.PairedRemoved(dev.ProductID)
}

// handlePropertiesChanged folds Device1 property deltas into the tracked
// record. An untracked device that flips Paired to true is promoted to an
// addition; a tracked one that flips it to false is a removal.
func (w *PairingWatcher) handlePropertiesChanged(sig *dbus.Signal) {
	// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	w.mu.Lock()
	dev, known := w.devices[sig.Path]
	sink := w.sink
	w.mu.Unlock()

	if !known {
		if paired, present := changed["Paired"]; present {
			if p, ok := paired.Value().(bool); ok && p {
				w.promoteToPaired(sig.Path, sink)
			}
		}
		return
	}

	if paired, present := changed["Paired"]; present {
		if p, ok := paired.Value().(bool); ok && !p {
			w.mu.Lock()
			delete(w.devices, sig.Path)
			w.mu.Unlock()
			sink.PairedRemoved(dev.ProductID)
			return
		}
	}

	interesting := false
	if v, present := changed["Connected"]; present {
		if b, ok := v.Value().(bool); ok {
			dev.Connected = b
			interesting = true
		}
	}
	if v, present := changed["Alias"]; present {
		if s, ok := v.Value().(string); ok {
			dev.Name = s
			interesting = true
		}
	}
	if v, present := changed["Address"]; present {
		if s, ok := v.Value().(string); ok {
			dev.Address = s
			interesting = true
		}
	}
	if !interesting {
		return
	}

	w.mu.Lock()
	w.devices[sig.Path] = dev
	w.mu.Unlock()
	sink.PairedUpdated(dev)
}

// promoteToPaired fetches the full property set for a device that just
// became paired and reports it as an addition. Fetch failures mean no
// information this cycle; the next signal will retry.
func (w *PairingWatcher) promoteToPaired(path dbus.ObjectPath, sink engine.PairingSink) {
	var props map[string]dbus.Variant
	err := w.conn.bus.Object(busName, path).
		Call(propsIface+".GetAll", 0, deviceIface).
		Store(&props)
	if err != nil {
		w.logger.Warn("fetching device properties failed", "path", string(path), "error", err)
		return
	}
	dev, ok := w.deviceFromProps(path, props)
	if !ok {
		return
	}

	w.mu.Lock()
	w.devices[path] = dev
	w.mu.Unlock()
	sink.PairedAdded(dev)
}

// deviceFromProps builds a PairedDevice from Device1 properties. Devices
// whose modalias does not name a tracked Apple model are skipped.
func (w *PairingWatcher) deviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) (engine.PairedDevice, bool) {
	productID, ok := productIDFromModalias(variantString(props, "Modalias"))
	if !ok {
		return engine.PairedDevice{}, false
	}

	name := variantString(props, "Alias")
	if name == "" {
		name = variantString(props, "Name")
	}
	if name == "" {
		if model, known := proximity.ModelName(productID); known {
			name = model
		}
	}

	address := variantString(props, "Address")
	if address == "" {
		address = addressFromPath(path)
	}

	return engine.PairedDevice{
		ProductID: productID,
		DeviceID:  string(path),
		Name:      name,
		Address:   address,
		Connected: variantBool(props, "Connected"),
	}, true
}
