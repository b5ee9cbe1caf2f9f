// Package enrichment maintains the latest broadcast-derived record per
// accessory.
//
// The tracker consumes raw BLE advertisements, decodes Apple proximity
// pairing payloads, and keeps exactly one Record per product ID. Hardware
// addresses rotate and signal strength fluctuates constantly, so records are
// compared with semantic equality (battery, charging, ear, lid and case
// fields only) before a change notification fires. The stored record is
// still replaced on every decode, so Latest always returns fresh metadata.
//
// Records older than the configured staleness window are treated as absent.
// Expiry is passive: a timestamp comparison on read, never a timer.
package enrichment
