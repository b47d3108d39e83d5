package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/codec"
	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// DB is the primary handle: one open file, one primary key/value table,
// one physical connection. It exclusively owns the connection; Table
// handles obtained via DB.Table reuse it without owning it.
type DB struct {
	*handleCore

	path   string
	sqlDB  *sql.DB
	conn   *bun.DB
	policy *sqlsafety.Policy
	cfg    Config

	closed atomic.Bool

	childrenMu sync.Mutex
	children   map[string]*Table
}

// Open creates or opens a SQLite file at location and returns a DB bound
// to cfg.Table (default "data"). A postgres:// location returns a
// kverrors.UnsupportedBackend error without touching the filesystem.
func Open(location string, cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn, err := resolveSQLiteDSN(location)
	if err != nil {
		return nil, err
	}
	// _txlock=immediate makes every BeginTx on this connection issue
	// BEGIN IMMEDIATE, so batch and explicit transactions take the write
	// lock up front.
	if strings.Contains(dsn, "?") {
		dsn += "&_txlock=immediate"
	} else {
		dsn += "?_txlock=immediate"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	// SQLite supports exactly one writer; pinning the pool to a single
	// connection makes that a property of the Go connection pool instead
	// of something every caller has to remember.
	sqlDB.SetMaxOpenConns(1)

	conn := bun.NewDB(sqlDB, sqlitedialect.New())

	ctx := context.Background()

	quotedTable, err := sqlsafety.QuoteIdentifier(cfg.Table)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := createKVTable(ctx, conn, quotedTable); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := applyPragmas(ctx, conn, cfg); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	cdc, err := codec.New(cfg.EncryptionMode, cfg.EncryptionKey)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	warner := cfg.Warner
	if warner == nil {
		warner = kverrors.DefaultWarner()
	}
	policy, err := sqlsafety.NewPolicy(cfg.StrictSQLValidation, cfg.MaxClauseLength, cfg.AllowedSQLFunctions, cfg.ForbiddenSQLFunctions, warner)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	strategy, err := cache.NewStrategy(cfg.cacheStrategyConfig())
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := &DB{
		path:     location,
		sqlDB:    sqlDB,
		conn:     conn,
		policy:   policy,
		cfg:      cfg,
		children: make(map[string]*Table),
	}
	db.handleCore = &handleCore{
		conn:           conn,
		table:          cfg.Table,
		quoted:         quotedTable,
		cache:          strategy,
		codec:          cdc,
		persistenceTTL: cfg.effectivePersistenceTTL(),
		now:            time.Now,
		isClosed:       db.closedErr,
	}

	if cfg.BulkLoad {
		if err := db.LoadAll(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	return db, nil
}

func createKVTable(ctx context.Context, conn *bun.DB, quotedTable string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT)`, quotedTable)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// closedErr returns kverrors.Closed("") if this handle has been closed,
// nil otherwise. It is wired into handleCore as the dict contract's
// guard, per invariant 4: a closed handle rejects every operation.
func (db *DB) closedErr() error {
	if db.closed.Load() {
		return kverrors.Closed("")
	}
	return nil
}

// Table returns a handle addressing a different physical table in the
// same file, creating it with the same (key TEXT PRIMARY KEY, value TEXT)
// schema if it does not already exist. The returned Table reuses this
// DB's connection and carries its own independent cache.
func (db *DB) Table(name string) (*Table, error) {
	if err := db.closedErr(); err != nil {
		return nil, err
	}

	quoted, err := sqlsafety.QuoteIdentifier(name)
	if err != nil {
		return nil, err
	}

	if err := createKVTable(context.Background(), db.conn, quoted); err != nil {
		return nil, err
	}

	strategy, err := cache.NewStrategy(db.cfg.cacheStrategyConfig())
	if err != nil {
		return nil, err
	}

	t := &Table{
		parent: db,
		name:   name,
	}
	t.handleCore = &handleCore{
		conn:           db.conn,
		table:          name,
		quoted:         quoted,
		cache:          strategy,
		codec:          db.codec,
		persistenceTTL: db.cfg.effectivePersistenceTTL(),
		now:            time.Now,
		isClosed:       t.isClosed,
	}

	db.childrenMu.Lock()
	db.children[name] = t
	db.childrenMu.Unlock()

	return t, nil
}

// Close closes the underlying connection. Subsequent operations on this
// DB, and on every Table obtained from it, fail with a closed-connection
// error (kverrors.IsClosed reports true).
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	return db.sqlDB.Close()
}

// Closed reports whether Close has been called on this handle.
func (db *DB) Closed() bool {
	return db.closed.Load()
}

// Path returns the filesystem location (or DSN) this handle was opened
// with.
func (db *DB) Path() string {
	return db.path
}

// Name returns the primary table name.
func (db *DB) Name() string {
	return db.table
}

// Conn returns the underlying bun connection backing this handle. It is
// exposed so auxiliary relational tables (created via CreateTable) can be
// addressed with bun's own query builder or wrapped by a
// github.com/goliatone/go-repository-bun repository, sharing the same
// physical SQLite connection as the key/value contract instead of opening
// a second one.
func (db *DB) Conn() *bun.DB {
	return db.conn
}
