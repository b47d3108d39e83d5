package kvstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// ColumnDef describes one column in a CreateTable call: Name and Type are
// both passed through the SQL safety layer (Name via QuoteIdentifier,
// Type restricted to a short allow-list of bare SQLite type names; the
// PrimaryKey and NotNull fields supply the constraints) before being
// interpolated into the generated DDL.
type ColumnDef struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
}

// CreateTable creates an auxiliary table with caller-specified columns.
// Every identifier passes through sqlsafety.QuoteIdentifier; this is the
// entry point arbitrary relational tables use alongside the primary
// key/value table.
func (db *DB) CreateTable(ctx context.Context, name string, columns []ColumnDef) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	if len(columns) == 0 {
		return kverrors.Validation("create table %q: at least one column is required", name)
	}

	quotedTable, err := sqlsafety.QuoteIdentifier(name)
	if err != nil {
		return err
	}

	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		quotedCol, err := sqlsafety.QuoteIdentifier(c.Name)
		if err != nil {
			return err
		}
		colType, err := sanitizeColumnType(c.Type)
		if err != nil {
			return err
		}
		def := quotedCol + " " + colType
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if c.NotNull && !c.PrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, quotedTable, strings.Join(defs, ", "))
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

var allowedColumnTypes = map[string]struct{}{
	"TEXT": {}, "INTEGER": {}, "REAL": {}, "BLOB": {}, "NUMERIC": {}, "BOOLEAN": {},
}

func sanitizeColumnType(t string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(t))
	if _, ok := allowedColumnTypes[upper]; !ok {
		return "", kverrors.Validation("unsupported column type %q", t)
	}
	return upper, nil
}

// CreateIndex creates an index on table over columns.
func (db *DB) CreateIndex(ctx context.Context, indexName, table string, columns []string, unique bool) error {
	if err := db.closedErr(); err != nil {
		return err
	}

	quotedIndex, err := sqlsafety.QuoteIdentifier(indexName)
	if err != nil {
		return err
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return err
	}
	quotedCols := make([]string, 0, len(columns))
	for _, c := range columns {
		qc, err := sqlsafety.QuoteIdentifier(c)
		if err != nil {
			return err
		}
		quotedCols = append(quotedCols, qc)
	}

	uniqueKw := ""
	if unique {
		uniqueKw = "UNIQUE "
	}
	stmt := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)`, uniqueKw, quotedIndex, quotedTable, strings.Join(quotedCols, ", "))
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// DropTable drops an auxiliary table.
func (db *DB) DropTable(ctx context.Context, name string) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	quoted, err := sqlsafety.QuoteIdentifier(name)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoted); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// DropIndex drops an index by name.
func (db *DB) DropIndex(ctx context.Context, name string) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	quoted, err := sqlsafety.QuoteIdentifier(name)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, `DROP INDEX IF EXISTS `+quoted); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// AlterTableAddColumn adds a new column to an existing table.
func (db *DB) AlterTableAddColumn(ctx context.Context, table string, col ColumnDef) error {
	if err := db.closedErr(); err != nil {
		return err
	}
	quotedTable, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return err
	}
	quotedCol, err := sqlsafety.QuoteIdentifier(col.Name)
	if err != nil {
		return err
	}
	colType, err := sanitizeColumnType(col.Type)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quotedTable, quotedCol, colType)
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// TableExists reports whether table exists in sqlite_master.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	if err := db.closedErr(); err != nil {
		return false, err
	}
	var n int
	err := db.conn.NewSelect().
		ColumnExpr("COUNT(*)").
		TableExpr("sqlite_master").
		Where("type = 'table' AND name = ?", table).
		Scan(ctx, &n)
	if err != nil {
		return false, kverrors.Engine(err)
	}
	return n > 0, nil
}

// ListTables returns every user table name in the database (internal
// sqlite_ tables excluded).
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	var names []string
	err := db.conn.NewSelect().
		ColumnExpr("name").
		TableExpr("sqlite_master").
		Where("type = 'table' AND name NOT LIKE 'sqlite_%'").
		OrderExpr("name").
		Scan(ctx, &names)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return names, nil
}

// ListIndexes returns every index name defined on table.
func (db *DB) ListIndexes(ctx context.Context, table string) ([]string, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	var names []string
	err := db.conn.NewSelect().
		ColumnExpr("name").
		TableExpr("sqlite_master").
		Where("type = 'index' AND tbl_name = ?", table).
		OrderExpr("name").
		Scan(ctx, &names)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	return names, nil
}

// ColumnInfo describes one row of PRAGMA table_info(table).
type ColumnInfo struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey int
}

// GetTableSchema returns the column definitions of table via PRAGMA
// table_info, the reserved-word-safe way to introspect a table's shape.
func (db *DB) GetTableSchema(ctx context.Context, table string) ([]ColumnInfo, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}
	quoted, err := sqlsafety.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `PRAGMA table_info(`+quoted+`)`)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	defer rows.Close()

	var out []ColumnInfo
	for rows.Next() {
		var (
			c       ColumnInfo
			notNull int
			def     *string
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &def, &c.PrimaryKey); err != nil {
			return nil, kverrors.Engine(err)
		}
		c.NotNull = notNull != 0
		c.Default = def
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, kverrors.Engine(err)
	}
	return out, nil
}
