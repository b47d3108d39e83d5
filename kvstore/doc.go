// Package kvstore is the storage core: a key/value table on top of an
// embedded SQLite file, backed by uptrace/bun for statement building and
// mattn/go-sqlite3 as the driver. A DB owns one physical connection and a
// primary table; Table handles address auxiliary tables in the same file
// while reusing the parent's connection and sharing its closed state.
//
// The dict contract (Get/Set/Delete/...), the batch/transaction helpers
// and the raw SQL façade all funnel through the SQL safety layer in
// kvstore/sqlsafety before any caller-supplied fragment reaches the
// driver, and through kvstore/codec at the JSON/encryption boundary.
package kvstore
