package kvasync

import "context"

// Vacuum mirrors kvstore.DB.Vacuum on the primary lane.
func (db *DB) Vacuum(ctx context.Context) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.Vacuum(ctx) })
}

// GetDBSize mirrors kvstore.DB.GetDBSize on the primary lane.
func (db *DB) GetDBSize(ctx context.Context) *Future[int64] {
	return submit(db.lane, func() (int64, error) { return db.store.GetDBSize() })
}

// ExportTableToDict mirrors kvstore.DB.ExportTableToDict on the primary
// lane.
func (db *DB) ExportTableToDict(ctx context.Context, table string) *Future[[]map[string]any] {
	return submit(db.lane, func() ([]map[string]any, error) { return db.store.ExportTableToDict(ctx, table) })
}

// ImportFromDictList mirrors kvstore.DB.ImportFromDictList on the
// primary lane.
func (db *DB) ImportFromDictList(ctx context.Context, table string, rows []map[string]any) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.ImportFromDictList(ctx, table, rows) })
}

// GetLastInsertRowID mirrors kvstore.DB.GetLastInsertRowID on the
// primary lane.
func (db *DB) GetLastInsertRowID(ctx context.Context) *Future[int64] {
	return submit(db.lane, func() (int64, error) { return db.store.GetLastInsertRowID(ctx) })
}

// Checkpoint mirrors kvstore.DB.Checkpoint on the primary lane.
func (db *DB) Checkpoint(ctx context.Context, mode string) *Future[[3]int] {
	return submit(db.lane, func() ([3]int, error) {
		busy, log, checkpointed, err := db.store.Checkpoint(ctx, mode)
		return [3]int{busy, log, checkpointed}, err
	})
}

// Pragma mirrors kvstore.DB.Pragma on the primary lane.
func (db *DB) Pragma(ctx context.Context, name, value string) *Future[string] {
	return submit(db.lane, func() (string, error) { return db.store.Pragma(ctx, name, value) })
}
