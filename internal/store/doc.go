// Package store persists reconstruction sessions in SQLite.
//
// A session is one run of the engine: the input events in arrival order
// and the finalized record set in output order, stored row by row with an
// ordinal column. Order is the only chronology a record set carries, so
// every read is ORDER BY ordinal ASC.
//
// Each session also keeps content hashes of both sides (ir.EventLogHash,
// ir.RecordSetHash). Replaying the stored events must reproduce the stored
// records hash.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: deleting a session cascades to its rows
package store
