package kvstore

import (
	"context"
	"database/sql"

	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// Execute runs a single caller-supplied statement with bound parameters.
// It does not pass through the SQL safety layer: Execute is meant for
// fully parameterized statements, not free-form fragments -- use Query
// for the validated, fragment-accepting surface.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return res, nil
}

// ExecuteMany runs query once per entry in paramSets within a single
// transaction, matching executemany's atomicity expectations.
func (db *DB) ExecuteMany(ctx context.Context, query string, paramSets [][]any) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	if len(paramSets) == 0 {
		return nil
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

	for _, params := range paramSets {
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return kverrors.Engine(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kverrors.Engine(err)
	}
	committed = true
	return nil
}

// FetchOne runs query and scans the first row's columns into dest
// pointers. When no row matched it returns sql.ErrNoRows wrapped as an
// engine error, not a kverrors.KeyMissing error (unlike the dict
// contract, "row not found" here is not a dict key miss).
func (db *DB) FetchOne(ctx context.Context, query string, args []any, dest ...any) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	row := db.conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(dest...); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// FetchAll runs query and returns every row as a column-name -> value map.
func (db *DB) FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	defer rows.Close()

	out, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, kverrors.Engine(err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, kverrors.Engine(err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeScanned(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, kverrors.Engine(err)
	}
	return out, nil
}

// normalizeScanned converts driver-returned []byte (TEXT/BLOB columns
// without an explicit Go type) into string, matching the JSON-tree shape
// callers expect from Query/QueryWithPagination results.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// SQLInsert inserts one row into table from a column -> value map.
func (db *DB) SQLInsert(ctx context.Context, table string, values map[string]any) (sql.Result, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	cols, placeholders, args, err := quoteColumnMap(values)
	if err != nil {
		return nil, err
	}

	stmt := "INSERT INTO " + quotedTable + " (" + joinComma(cols) + ") VALUES (" + joinComma(placeholders) + ")"
	res, err := db.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return res, nil
}

// SQLUpdate updates rows in table matching where (a validated fragment,
// bound to whereArgs) with the given column -> value map.
func (db *DB) SQLUpdate(ctx context.Context, table string, values map[string]any, where string, whereArgs ...any) (sql.Result, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	if err := db.policy.CheckFragment("UPDATE where clause", where, sqlsafety.QueryOverrides{}); err != nil {
		return nil, err
	}

	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+len(whereArgs))
	for col, val := range values {
		qc, err := sqlsafety.QuoteIdentifier(col)
		if err != nil {
			return nil, err
		}
		sets = append(sets, qc+" = ?")
		args = append(args, val)
	}
	args = append(args, whereArgs...)

	stmt := "UPDATE " + quotedTable + " SET " + joinComma(sets)
	if where != "" {
		stmt += " WHERE " + where
	}

	res, err := db.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return res, nil
}

// SQLDelete deletes rows in table matching where.
func (db *DB) SQLDelete(ctx context.Context, table string, where string, whereArgs ...any) (sql.Result, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	if err := db.policy.CheckFragment("DELETE where clause", where, sqlsafety.QueryOverrides{}); err != nil {
		return nil, err
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	stmt := "DELETE FROM " + quotedTable
	if where != "" {
		stmt += " WHERE " + where
	}
	res, err := db.conn.ExecContext(ctx, stmt, whereArgs...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return res, nil
}

// Upsert inserts values into table, or on a primary-key/unique conflict
// over conflictColumns, updates every given column instead.
func (db *DB) Upsert(ctx context.Context, table string, values map[string]any, conflictColumns []string) (sql.Result, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	cols, placeholders, args, err := quoteColumnMap(values)
	if err != nil {
		return nil, err
	}

	quotedConflict := make([]string, 0, len(conflictColumns))
	for _, c := range conflictColumns {
		qc, err := sqlsafety.QuoteIdentifier(c)
		if err != nil {
			return nil, err
		}
		quotedConflict = append(quotedConflict, qc)
	}

	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		updates = append(updates, c+" = excluded."+c)
	}

	stmt := "INSERT INTO " + quotedTable + " (" + joinComma(cols) + ") VALUES (" + joinComma(placeholders) + ")" +
		" ON CONFLICT(" + joinComma(quotedConflict) + ") DO UPDATE SET " + joinComma(updates)

	res, err := db.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return res, nil
}

// Count returns COUNT(*) over table, optionally filtered by where.
func (db *DB) Count(ctx context.Context, table string, where string, whereArgs ...any) (int, error) {
	if err := db.closedErr(); err != nil {
		return 0, err
	}
	if where != "" {
		if err := db.policy.CheckFragment("COUNT where clause", where, sqlsafety.QueryOverrides{}); err != nil {
			return 0, err
		}
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return 0, err
	}

	stmt := "SELECT COUNT(*) FROM " + quotedTable
	if where != "" {
		stmt += " WHERE " + where
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, stmt, whereArgs...).Scan(&n); err != nil {
		return 0, kverrors.Engine(err)
	}
	return n, nil
}

// Exists reports whether any row in table matches where.
func (db *DB) Exists(ctx context.Context, table string, where string, whereArgs ...any) (bool, error) {
	n, err := db.Count(ctx, table, where, whereArgs...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func quoteColumnMap(values map[string]any) (cols, placeholders []string, args []any, err error) {
	cols = make([]string, 0, len(values))
	placeholders = make([]string, 0, len(values))
	args = make([]any, 0, len(values))
	for col, val := range values {
		qc, err := sqlsafety.QuoteIdentifier(col)
		if err != nil {
			return nil, nil, nil, err
		}
		cols = append(cols, qc)
		placeholders = append(placeholders, "?")
		args = append(args, val)
	}
	return cols, placeholders, args, nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
