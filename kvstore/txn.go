package kvstore

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/kvengine/kverrors"
)

// Txn is a scoped acquisition of a database transaction: it guarantees
// commit on success and rollback on every other exit path, a Go-idiomatic
// stand-in for context-manager-driven rollback-on-exception.
type Txn struct {
	tx       bun.Tx
	db       *DB
	resolved bool
}

// BeginTransaction starts a transaction against the primary connection.
// Callers that don't use WithTransaction must call Commit or Rollback
// exactly once.
func (db *DB) BeginTransaction(ctx context.Context) (*Txn, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return &Txn{tx: tx, db: db}, nil
}

// Transaction is an alias for BeginTransaction, named to match the
// scoped-acquisition style callers expect from the external interface.
func (db *DB) Transaction(ctx context.Context) (*Txn, error) {
	return db.BeginTransaction(ctx)
}

// Execute runs a statement within the transaction.
func (t *Txn) Execute(ctx context.Context, query string, args ...any) error {
	if t.resolved {
		return kverrors.Closed("")
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// Commit commits the transaction. Calling Commit or Rollback a second
// time is a no-op.
func (t *Txn) Commit() error {
	if t.resolved {
		return nil
	}
	t.resolved = true
	if err := t.tx.Commit(); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// Rollback rolls the transaction back. Calling Commit or Rollback a
// second time is a no-op.
func (t *Txn) Rollback() error {
	if t.resolved {
		return nil
	}
	t.resolved = true
	if err := t.tx.Rollback(); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// WithTransaction runs fn within a transaction, committing on a nil
// return and rolling back otherwise (including on panic, which it
// re-panics after rollback).
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context, txn *Txn) error) (err error) {
	txn, err := db.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txn.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, txn); err != nil {
		_ = txn.Rollback()
		return err
	}
	return txn.Commit()
}
