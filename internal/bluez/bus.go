package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName            = "org.bluez"
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	propsIface         = "org.freedesktop.DBus.Properties"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"

	propsChangedSignal      = propsIface + ".PropertiesChanged"
	interfacesAddedSignal   = objectManagerIface + ".InterfacesAdded"
	interfacesRemovedSignal = objectManagerIface + ".InterfacesRemoved"
)

// DefaultAdapter is the adapter name used when the config leaves it empty.
const DefaultAdapter = "hci0"

// signalBufferSize sizes the per-watcher D-Bus signal channels. Discovery
// traffic is bursty; a dropped signal is only a missed broadcast.
const signalBufferSize = 64

// Logger is the minimal logging interface the watchers need.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Conn wraps a system D-Bus connection scoped to one Bluetooth adapter.
type Conn struct {
	bus     *dbus.Conn
	adapter dbus.ObjectPath
}

// Connect opens the system bus and verifies BlueZ is present. adapter is the
// controller name, e.g. "hci0"; empty selects DefaultAdapter.
func Connect(adapter string) (*Conn, error) {
	if adapter == "" {
		adapter = DefaultAdapter
	}

	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	// Quick check that BlueZ is on the bus.
	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		bus.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		bus.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus: is bluetooth.service running?")
	}

	return &Conn{
		bus:     bus,
		adapter: dbus.ObjectPath("/org/bluez/" + adapter),
	}, nil
}

// Close releases the bus connection.
func (c *Conn) Close() error {
	return c.bus.Close()
}

// adapterObject returns the D-Bus object for the adapter.
func (c *Conn) adapterObject() dbus.BusObject {
	return c.bus.Object(busName, c.adapter)
}

// addMatch installs a signal match rule scoped under /org/bluez.
func (c *Conn) addMatch(member string) {
	c.bus.BusObject().Call(
		"org.freedesktop.DBus.AddMatch", 0,
		fmt.Sprintf("type='signal',interface='%s',member='%s',path_namespace='/org/bluez'",
			memberInterface(member), memberName(member)),
	)
}

func memberInterface(qualified string) string {
	i := strings.LastIndex(qualified, ".")
	return qualified[:i]
}

func memberName(qualified string) string {
	i := strings.LastIndex(qualified, ".")
	return qualified[i+1:]
}

// addressFromPath extracts a MAC address from a BlueZ device object path
// like "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func addressFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return ""
	}
	return strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
}

// variantString reads a string property from a variant map.
func variantString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// variantBool reads a bool property from a variant map.
func variantBool(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}
