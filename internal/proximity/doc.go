// Package proximity decodes Apple Continuity "Proximity Pairing" broadcast
// messages into an absolute per-pod view of battery, charging, ear-presence,
// case and lid state.
//
// # Wire format
//
// Messages arrive as the vendor-tagged payload (company ID 0x004C) of a BLE
// advertisement. The decoder only accepts the Proximity Pairing message type:
//
//	Offset  Size  Field
//	0       1     Packet type, must be 0x07
//	1       1     Remaining length, must be 0x19
//	2       1     reserved
//	3-4     2     Product ID (little-endian)
//	5       1     Status flags
//	6-7     2     Battery / charging
//	8       1     Lid status (bit 3 inverted)
//	9       1     Colour (kept raw, not interpreted)
//	10-26   17    opaque
//
// The on-wire battery, charging and ear fields are relative to whichever pod
// is transmitting ("broadcast side"). ParseMessage resolves them into absolute
// left/right fields at decode time, so one message fully describes both pods
// and no caller ever reasons about broadcast side again.
//
// # Failure semantics
//
// Short payloads, wrong type/length markers and unrecognised product IDs all
// make ParseMessage return nil. These are expected and frequent: the decoder
// is a filter, not an error channel. Callers silently skip nil results.
package proximity
