package kvstore

import (
	"context"
	"os"

	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// Vacuum runs the engine's VACUUM command, rebuilding the file to reclaim
// space freed by deletes/updates.
func (db *DB) Vacuum(ctx context.Context) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, `VACUUM`); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// GetDBSize returns the size in bytes of the underlying file. For a
// ":memory:" database it always returns 0.
func (db *DB) GetDBSize() (int64, error) {
	if err := db.closedErr(); err != nil {
		return 0, err
	}
	if db.path == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(db.path)
	if err != nil {
		return 0, kverrors.Engine(err)
	}
	return info.Size(), nil
}

// ExportTableToDict returns every row of table as a column -> value map,
// in insertion/rowid order.
func (db *DB) ExportTableToDict(ctx context.Context, table string) ([]map[string]any, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	return db.Query(ctx, QueryOptions{Table: table})
}

// ImportFromDictList inserts every row map into table within a single
// transaction.
func (db *DB) ImportFromDictList(ctx context.Context, table string, rows []map[string]any) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return kverrors.Engine(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, row := range rows {
		cols, placeholders, args, err := quoteColumnMap(row)
		if err != nil {
			return err
		}
		stmt := "INSERT INTO " + quotedTable + " (" + joinComma(cols) + ") VALUES (" + joinComma(placeholders) + ")"
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return kverrors.Engine(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kverrors.Engine(err)
	}
	committed = true
	return nil
}

// GetLastInsertRowID returns the rowid of the most recent INSERT on this
// connection, as reported by the engine's last_insert_rowid() function.
func (db *DB) GetLastInsertRowID(ctx context.Context) (int64, error) {
	if err := db.closedErr(); err != nil {
		return 0, err
	}
	var id int64
	if err := db.conn.QueryRowContext(ctx, `SELECT last_insert_rowid()`).Scan(&id); err != nil {
		return 0, kverrors.Engine(err)
	}
	return id, nil
}
