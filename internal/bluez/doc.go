// Package bluez implements the engine's collaborator interfaces against the
// BlueZ D-Bus API.
//
// Two watchers share a system-bus connection:
//
//   - PairingWatcher implements engine.PairingDirectory. It replays the
//     adapter's paired devices from ObjectManager.GetManagedObjects, signals
//     enumeration complete, then follows InterfacesAdded/InterfacesRemoved
//     and Device1 PropertiesChanged signals. The stable product ID is
//     recovered from each device's Modalias property; devices without an
//     Apple modalias for a known model are invisible to the engine.
//
//   - AdvertisementWatcher implements engine.BroadcastSource. It runs LE
//     discovery with a transport filter and forwards every ManufacturerData
//     change as a raw advertisement record. No decoding happens here; the
//     enrichment tracker owns that.
//
// All OS waiting lives in this package. The watchers deliver discrete
// callbacks and never block the engine.
package bluez
