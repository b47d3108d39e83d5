package kvasync

import (
	"context"

	"github.com/goliatone/kvengine/kvstore"
)

// WithTransaction mirrors kvstore.DB.WithTransaction, running the whole
// scoped transaction as a single job on the primary lane: fn's
// statements execute back-to-back with nothing else interleaved, and
// the transaction commits or rolls back before the Future resolves.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context, txn *kvstore.Txn) error) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.WithTransaction(ctx, fn) })
}
