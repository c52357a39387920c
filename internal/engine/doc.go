// Package engine reconstructs instances and interval markers from a
// chronological stream of instance, begin and end events.
//
// ARCHITECTURE:
//
// The Reconstructor is a small state machine:
//   - one LIFO stack of pending start times per name
//   - an append-only list of instances
//   - an append-only list of closed and orphan-end markers
//
// Begin pushes, End pops the newest start for the same name. Same-named
// overlapping intervals are therefore always read as nested, never as
// crossing: <a 1><a 2></a 4></a 5> yields a[1,5] outside a[2,4].
//
// An End with nothing pending is not an error. It records a marker whose
// start is ir.Sentinel and which sorts by its end time.
//
// Finalize runs exactly once. It appends one open marker per start still
// pending (names in first-referenced order, starts oldest first), then
// stable-sorts everything by start time. Later calls return the cached
// result; later mutations fail with a FINALIZED RuntimeError.
//
// Pipeline puts a FIFO queue and a single-writer Run loop in front of a
// Reconstructor so several producers can feed one engine. Ordering between
// producers is whatever order the queue observes.
//
// Replay and VerifyDeterminism rebuild a fresh engine from a recorded
// event slice and compare content hashes of the output.
package engine
