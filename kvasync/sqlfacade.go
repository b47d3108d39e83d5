package kvasync

import (
	"context"
	"database/sql"

	"github.com/goliatone/kvengine/kvstore"
)

// Execute mirrors kvstore.DB.Execute on the primary lane.
func (db *DB) Execute(ctx context.Context, query string, args ...any) *Future[sql.Result] {
	return submit(db.lane, func() (sql.Result, error) { return db.store.Execute(ctx, query, args...) })
}

// ExecuteMany mirrors kvstore.DB.ExecuteMany on the primary lane.
func (db *DB) ExecuteMany(ctx context.Context, query string, paramSets [][]any) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.ExecuteMany(ctx, query, paramSets) })
}

// FetchOne runs query and scans the first row into dest. When a
// read-only pool is configured it runs against a pooled connection, in
// parallel with the primary lane and any other pooled read; otherwise
// it falls back to the primary lane.
func (db *DB) FetchOne(ctx context.Context, query string, args []any, dest ...any) *Future[done] {
	if db.pool.enabled() {
		return runAsync(func() (done, error) { return done{}, db.pool.fetchOne(ctx, query, args, dest...) })
	}
	return submit(db.lane, func() (done, error) { return done{}, db.store.FetchOne(ctx, query, args, dest...) })
}

// FetchAll runs query and returns every row as a column-name -> value
// map, using the read-only pool when available.
func (db *DB) FetchAll(ctx context.Context, query string, args ...any) *Future[[]map[string]any] {
	if db.pool.enabled() {
		return runAsync(func() ([]map[string]any, error) { return db.pool.fetchAll(ctx, query, args...) })
	}
	return submit(db.lane, func() ([]map[string]any, error) { return db.store.FetchAll(ctx, query, args...) })
}

// Query mirrors kvstore.DB.Query on the primary lane: the validated
// SELECT it builds depends on the primary connection's SQL safety
// policy, which the read-only pool does not carry.
func (db *DB) Query(ctx context.Context, opts kvstore.QueryOptions) *Future[[]map[string]any] {
	return submit(db.lane, func() ([]map[string]any, error) { return db.store.Query(ctx, opts) })
}

// QueryWithPagination mirrors kvstore.DB.QueryWithPagination on the
// primary lane.
func (db *DB) QueryWithPagination(ctx context.Context, opts kvstore.QueryOptions) *Future[kvstore.PaginatedResult] {
	return submit(db.lane, func() (kvstore.PaginatedResult, error) { return db.store.QueryWithPagination(ctx, opts) })
}

// SQLInsert mirrors kvstore.DB.SQLInsert on the primary lane.
func (db *DB) SQLInsert(ctx context.Context, table string, values map[string]any) *Future[sql.Result] {
	return submit(db.lane, func() (sql.Result, error) { return db.store.SQLInsert(ctx, table, values) })
}

// SQLUpdate mirrors kvstore.DB.SQLUpdate on the primary lane.
func (db *DB) SQLUpdate(ctx context.Context, table string, values map[string]any, where string, whereArgs ...any) *Future[sql.Result] {
	return submit(db.lane, func() (sql.Result, error) { return db.store.SQLUpdate(ctx, table, values, where, whereArgs...) })
}

// SQLDelete mirrors kvstore.DB.SQLDelete on the primary lane.
func (db *DB) SQLDelete(ctx context.Context, table string, where string, whereArgs ...any) *Future[sql.Result] {
	return submit(db.lane, func() (sql.Result, error) { return db.store.SQLDelete(ctx, table, where, whereArgs...) })
}

// Upsert mirrors kvstore.DB.Upsert on the primary lane.
func (db *DB) Upsert(ctx context.Context, table string, values map[string]any, conflictColumns []string) *Future[sql.Result] {
	return submit(db.lane, func() (sql.Result, error) { return db.store.Upsert(ctx, table, values, conflictColumns) })
}

// Count mirrors kvstore.DB.Count on the primary lane.
func (db *DB) Count(ctx context.Context, table string, where string, whereArgs ...any) *Future[int] {
	return submit(db.lane, func() (int, error) { return db.store.Count(ctx, table, where, whereArgs...) })
}

// Exists mirrors kvstore.DB.Exists on the primary lane.
func (db *DB) Exists(ctx context.Context, table string, where string, whereArgs ...any) *Future[bool] {
	return submit(db.lane, func() (bool, error) { return db.store.Exists(ctx, table, where, whereArgs...) })
}
