package mqtt

import "fmt"

// Topic prefixes for the PodPilot MQTT hierarchy.
//
// All topics live under the flat scheme: podpilot/{category}/...
const (
	// TopicPrefix is the base for all PodPilot topics.
	TopicPrefix = "podpilot"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "podpilot/system"
)

// Topics provides builders for PodPilot MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("0x2014")
//	// Returns: "podpilot/device/0x2014/state"
type Topics struct{}

// DeviceState returns the retained state topic for a tracked device.
//
// Example: podpilot/device/0x2014/state
func (Topics) DeviceState(productID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefix, productID)
}

// Event returns the topic for a state change event stream.
//
// Example: podpilot/event/ble_data_updated
func (Topics) Event(reason string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, reason)
}

// AlertAttention returns the topic for needs-attention alerts.
//
// Example: podpilot/alert/attention
func (Topics) AlertAttention() string {
	return fmt.Sprintf("%s/alert/attention", TopicPrefix)
}

// AlertRemovedFromCase returns the topic for case-opened alerts.
//
// Example: podpilot/alert/removed_from_case
func (Topics) AlertRemovedFromCase() string {
	return fmt.Sprintf("%s/alert/removed_from_case", TopicPrefix)
}

// SystemStatus returns the daemon status topic.
//
// Example: podpilot/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching all device state topics.
//
// Pattern: podpilot/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefix)
}

// AllEvents returns a pattern matching all event topics.
//
// Pattern: podpilot/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllAlerts returns a pattern matching all alert topics.
//
// Pattern: podpilot/alert/+
func (Topics) AllAlerts() string {
	return fmt.Sprintf("%s/alert/+", TopicPrefix)
}

// AllTopics returns a pattern matching all PodPilot topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: podpilot/#
func (Topics) AllTopics() string {
	return "podpilot/#"
}
