// Package engine merges the OS pairing directory, the broadcast enrichment
// stream and default-audio-output notifications into one authoritative
// record per accessory.
//
// # Correlation model
//
// Both event sources expose rotating hardware addresses, so neither address
// can act as identity. The engine keys everything on the stable 16-bit
// product ID. The central invariant is: at most one DeviceState per product
// ID, regardless of which source saw the accessory first or how their events
// interleave.
//
// Per product ID the record moves through three situations: unknown (no
// record), unpaired-observed (seen only via broadcast) and paired (confirmed
// by the pairing directory). Removal by the pairing directory deletes the
// record outright; a later broadcast recreates it from scratch as
// unpaired-observed.
//
// # Operation lockout
//
// A user-initiated connect or disconnect races against lagging OS
// notifications. BeginOperation marks a product ID as in progress;
// EndOperation records the completion time. While an operation is in
// progress, and for a grace window after it completes, externally sourced
// connection updates for that ID are dropped so a stale notification cannot
// overwrite what the user just did.
//
// # Delivery
//
// Change events fan out synchronously to every subscriber within the
// handling of the triggering input; there is no internal queue. A panicking
// subscriber is isolated and does not prevent delivery to the others.
// Marshaling onto a UI thread, if needed, is the subscriber's problem.
package engine
