package kvasync

import (
	"context"

	"github.com/goliatone/kvengine/kvstore"
)

// DB is the async façade over a kvstore.DB. Every dict-contract and
// SQL-façade method is mirrored here as a Future-returning call
// dispatched onto a single primary lane, so write order is preserved
// exactly no matter how many goroutines call concurrently. When
// cfg.ReadPoolSize > 0, FetchOne/FetchAll additionally run against a
// pool of dedicated read-only connections instead of the primary lane,
// for genuine read concurrency.
type DB struct {
	*asyncCore

	store *kvstore.DB
	lane  *lane
	pool  *readPool
}

// Open opens the underlying store and starts the primary lane worker
// (and, if configured, the read-only pool).
func Open(location string, cfg Config) (*DB, error) {
	store, err := kvstore.Open(location, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := newReadPool(store.Path(), cfg.ReadPoolSize)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultConfig().MaxWorkers
	}
	l := newLane(maxWorkers)

	db := &DB{
		asyncCore: &asyncCore{core: store, lane: l},
		store:     store,
		lane:      l,
		pool:      pool,
	}
	return db, nil
}

// Table returns an async handle for a sub-table addressed within the
// same file, sharing this DB's primary lane so its operations are
// ordered exactly against the parent's. Table creation itself runs on
// the lane like any other write, so it cannot jump ahead of or behind
// concurrently submitted work.
func (db *DB) Table(ctx context.Context, name string) (*Table, error) {
	f := submit(db.lane, func() (*kvstore.Table, error) { return db.store.Table(name) })
	t, err := f.Await(ctx)
	if err != nil {
		return nil, err
	}
	return &Table{
		asyncCore: &asyncCore{core: t, lane: db.lane},
		table:     t,
		parent:    db,
	}, nil
}

// Path returns the filesystem location (or DSN) this handle was opened
// with.
func (db *DB) Path() string {
	return db.store.Path()
}

// Name returns the primary table name.
func (db *DB) Name() string {
	return db.store.Name()
}

// Closed reports whether Close has run.
func (db *DB) Closed() bool {
	return db.store.Closed()
}

// Close drains the primary lane, closes the read-only pool (if any)
// and then the underlying store. Futures already in flight still
// resolve; new submissions after Close resolve at once with a
// closed-connection error (kverrors.IsClosed reports true).
func (db *DB) Close() error {
	db.lane.close()
	if db.pool.enabled() {
		_ = db.pool.closeAll()
	}
	return db.store.Close()
}
