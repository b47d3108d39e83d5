package kvstore

import (
	"sync/atomic"

	"github.com/goliatone/kvengine/kverrors"
)

// Table is a sub-table handle: it addresses a different physical table in
// the same file as its parent DB, reuses the parent's connection, and
// carries its own independent cache. It does not own the connection --
// closing a Table only detaches it from its parent's bookkeeping; closing
// the parent, in turn, makes every Table opened from it reject operations
// with a closed-connection error naming the table.
type Table struct {
	*handleCore

	parent *DB
	name   string
	closed atomic.Bool
}

// isClosed is wired into this Table's handleCore as its guard. It checks
// the Table's own closed flag first, then falls back to the parent's, so
// closing the parent after the child still reports the child's table
// name in the error.
func (t *Table) isClosed() error {
	if t.closed.Load() {
		return kverrors.Closed(t.name)
	}
	if t.parent.closed.Load() {
		return kverrors.Closed(t.name)
	}
	return nil
}

// Close detaches this Table from its parent's child registry. It does not
// close the parent's connection and the parent remains fully usable.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.parent.childrenMu.Lock()
	delete(t.parent.children, t.name)
	t.parent.childrenMu.Unlock()
	return nil
}

// Closed reports whether this Table (or its parent) has been closed.
func (t *Table) Closed() bool {
	return t.closed.Load() || t.parent.Closed()
}

// Name returns the table name this handle addresses.
func (t *Table) Name() string {
	return t.name
}
