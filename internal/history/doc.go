// Package history records correlation engine state changes in SQLite.
//
// Every event emitted by the engine is appended as a row to the
// device_state_history table, giving a queryable trail of connection
// changes, battery readings, and case activity. Recent rows can be read
// back per product ID, newest first.
//
// The recorder owns its schema and creates the table on startup. Writes
// happen on the engine's event goroutine and are kept cheap: one INSERT,
// no transactions.
package history
