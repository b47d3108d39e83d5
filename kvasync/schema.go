package kvasync

import (
	"context"

	"github.com/goliatone/kvengine/kvstore"
)

// CreateTable mirrors kvstore.DB.CreateTable on the primary lane.
func (db *DB) CreateTable(ctx context.Context, name string, columns []kvstore.ColumnDef) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.CreateTable(ctx, name, columns) })
}

// CreateIndex mirrors kvstore.DB.CreateIndex on the primary lane.
func (db *DB) CreateIndex(ctx context.Context, indexName, table string, columns []string, unique bool) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.CreateIndex(ctx, indexName, table, columns, unique) })
}

// DropTable mirrors kvstore.DB.DropTable on the primary lane.
func (db *DB) DropTable(ctx context.Context, name string) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.DropTable(ctx, name) })
}

// DropIndex mirrors kvstore.DB.DropIndex on the primary lane.
func (db *DB) DropIndex(ctx context.Context, name string) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.DropIndex(ctx, name) })
}

// AlterTableAddColumn mirrors kvstore.DB.AlterTableAddColumn on the
// primary lane.
func (db *DB) AlterTableAddColumn(ctx context.Context, table string, col kvstore.ColumnDef) *Future[done] {
	return submit(db.lane, func() (done, error) { return done{}, db.store.AlterTableAddColumn(ctx, table, col) })
}

// TableExists mirrors kvstore.DB.TableExists on the primary lane.
func (db *DB) TableExists(ctx context.Context, table string) *Future[bool] {
	return submit(db.lane, func() (bool, error) { return db.store.TableExists(ctx, table) })
}

// ListTables mirrors kvstore.DB.ListTables on the primary lane.
func (db *DB) ListTables(ctx context.Context) *Future[[]string] {
	return submit(db.lane, func() ([]string, error) { return db.store.ListTables(ctx) })
}

// ListIndexes mirrors kvstore.DB.ListIndexes on the primary lane.
func (db *DB) ListIndexes(ctx context.Context, table string) *Future[[]string] {
	return submit(db.lane, func() ([]string, error) { return db.store.ListIndexes(ctx, table) })
}

// GetTableSchema mirrors kvstore.DB.GetTableSchema on the primary lane.
func (db *DB) GetTableSchema(ctx context.Context, table string) *Future[[]kvstore.ColumnInfo] {
	return submit(db.lane, func() ([]kvstore.ColumnInfo, error) { return db.store.GetTableSchema(ctx, table) })
}
