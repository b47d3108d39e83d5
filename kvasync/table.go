package kvasync

import "github.com/goliatone/kvengine/kvstore"

// Table is the async handle for a sub-table, obtained via DB.Table. It
// shares its parent DB's primary lane and physical connection but
// carries its own cache, matching kvstore.Table's semantics.
type Table struct {
	*asyncCore

	table  *kvstore.Table
	parent *DB
}

// Name returns this table's name.
func (t *Table) Name() string {
	return t.table.Name()
}

// Closed reports whether this table (or its parent DB) has been
// closed.
func (t *Table) Closed() bool {
	return t.table.Closed()
}

// Close detaches this table from its parent; the parent DB and its
// other sub-tables are unaffected. Runs on the primary lane so it is
// ordered against any in-flight operation on this handle.
func (t *Table) Close() *Future[done] {
	return submit(t.parent.lane, func() (done, error) { return done{}, t.table.Close() })
}
