// Package statebridge publishes correlation engine output over MQTT.
//
// The bridge subscribes to the engine's event stream and side channels and
// mirrors them onto the broker:
//
//   - podpilot/device/{product_id}/state: retained JSON snapshot per device
//   - podpilot/event/{reason}: change events, not retained
//   - podpilot/alert/attention: paired-but-disconnected sightings
//   - podpilot/alert/removed_from_case: case-opened transitions
//
// Retained state topics give late subscribers (Home Assistant, dashboards)
// the current picture without waiting for the next broadcast. When a device
// is unpaired its retained state is cleared with an empty payload.
//
// Publish failures are logged and dropped; the engine's state remains the
// source of truth and the next event re-publishes the full snapshot.
package statebridge
