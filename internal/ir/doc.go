// Package ir defines the records and events shared by every markerset package.
//
// ir imports nothing internal. The engine, feed, store, harness and cli
// packages all depend on it, never the other way around.
//
// Key constraints:
//   - Kind tags are "Instance" and "Marker", exactly as consumers expect them
//   - A record's Times has length 1 or 2
//   - Sentinel (-1) in Times[0] marks an end with no observed begin
//   - Canonical JSON is the only encoding used for content hashes
package ir
