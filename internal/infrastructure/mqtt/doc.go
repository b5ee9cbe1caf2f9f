// Package mqtt provides MQTT client connectivity for PodPilot.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// PodPilot uses MQTT as its outbound state bus: the daemon publishes
// retained device state, change events, and alerts so home automation
// systems can consume accessory state without speaking BlueZ.
//
//	PodPilot Daemon → MQTT Broker → Consumers (Home Assistant, dashboards)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish retained device state
//	topic := mqtt.Topics{}.DeviceState("0x2014")
//	client.PublishRetained(topic, payload)
package mqtt
