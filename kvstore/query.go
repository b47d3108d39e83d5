package kvstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// bareIdentifierPattern matches a column reference that is nothing but a
// name -- no function call, no operator, no alias. Those go through
// sqlsafety.QuoteIdentifier so reserved words survive; anything else is
// an expression and is left as the caller wrote it once CheckFragment has
// cleared it.
var bareIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QueryOptions describes a free-form read against table or/with an
// arbitrary column expression list. Columns, Where, GroupBy and OrderBy
// are all caller-supplied SQL fragments and are validated by the SQL
// safety layer (length cap, function-call allow/deny, dangerous-pattern
// heuristics) before being interpolated into the generated statement;
// only Args are ever bound as parameters.
type QueryOptions struct {
	Table   string
	Columns []string // defaults to {"*"} when empty
	Where   string
	Args    []any
	GroupBy string
	OrderBy string
	Limit   int // 0 means unlimited
	Offset  int

	Overrides sqlsafety.QueryOverrides
}

// Query runs a validated SELECT and returns each row as a
// column-name -> value map.
func (db *DB) Query(ctx context.Context, opts QueryOptions) ([]map[string]any, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}

	stmt, err := db.buildSelect(opts)
	if err != nil {
		return nil, err
	}

	return db.FetchAll(ctx, stmt, opts.Args...)
}

// PaginatedResult is the return shape of QueryWithPagination: the page of
// rows plus the total row count ignoring Limit/Offset, so callers can
// compute page counts without a second round trip.
type PaginatedResult struct {
	Rows  []map[string]any
	Total int
}

// QueryWithPagination runs opts with Limit/Offset applied and additionally
// reports the total matching row count (computed without Limit/Offset).
func (db *DB) QueryWithPagination(ctx context.Context, opts QueryOptions) (PaginatedResult, error) {
	if err := db.closedErr(); err != nil {
		return PaginatedResult{}, err
	}

	countOpts := opts
	countOpts.Limit = 0
	countOpts.Offset = 0
	countOpts.Columns = []string{"COUNT(*) AS total"}
	countOpts.OrderBy = ""

	countStmt, err := db.buildSelect(countOpts)
	if err != nil {
		return PaginatedResult{}, err
	}
	var total int
	if err := db.FetchOne(ctx, countStmt, opts.Args, &total); err != nil {
		return PaginatedResult{}, err
	}

	rows, err := db.Query(ctx, opts)
	if err != nil {
		return PaginatedResult{}, err
	}

	return PaginatedResult{Rows: rows, Total: total}, nil
}

func (db *DB) buildSelect(opts QueryOptions) (string, error) {
	quotedTable, err := sqlsafety.QuoteIdentifier(opts.Table)
	if err != nil {
		return "", err
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	renderedColumns := make([]string, len(columns))
	for i, col := range columns {
		if col == "*" {
			renderedColumns[i] = col
			continue
		}
		if err := db.policy.CheckFragment("column expression", col, opts.Overrides); err != nil {
			return "", err
		}
		if bareIdentifierPattern.MatchString(col) {
			quoted, err := sqlsafety.QuoteIdentifier(col)
			if err != nil {
				return "", err
			}
			renderedColumns[i] = quoted
		} else {
			renderedColumns[i] = col
		}
	}

	stmt := "SELECT " + joinComma(renderedColumns) + " FROM " + quotedTable

	if opts.Where != "" {
		if err := db.policy.CheckFragment("where clause", opts.Where, opts.Overrides); err != nil {
			return "", err
		}
		stmt += " WHERE " + opts.Where
	}
	if opts.GroupBy != "" {
		if err := db.policy.CheckFragment("group by clause", opts.GroupBy, opts.Overrides); err != nil {
			return "", err
		}
		stmt += " GROUP BY " + opts.GroupBy
	}
	if opts.OrderBy != "" {
		if err := db.policy.CheckFragment("order by clause", opts.OrderBy, opts.Overrides); err != nil {
			return "", err
		}
		stmt += " ORDER BY " + opts.OrderBy
	}
	if opts.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	return stmt, nil
}
