package kvstore

import (
	"github.com/uptrace/bun"
)

// kvRow is the physical shape of every key/value table this engine
// manages, primary or auxiliary: (key TEXT PRIMARY KEY, value TEXT). The
// table name is never taken from the struct tag -- every query overrides
// it with ModelTableExpr/TableExpr using an identifier already validated
// and quoted by sqlsafety.QuoteIdentifier, since one bun.DB connection
// hosts an arbitrary number of these tables.
type kvRow struct {
	bun.BaseModel `bun:"table:data,alias:kv"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value"`
}

// persistedEnvelope wraps a value with its insertion time when a handle
// has CachePersistenceTTL enabled, so staleness survives a cache miss (or
// a process restart) without requiring a third column on-disk: the
// "value TEXT" cell stays the only thing the codec ever sees, timestamp
// and all.
type persistedEnvelope struct {
	Ts    int64 `json:"ts"`
	Value any   `json:"value"`
}
