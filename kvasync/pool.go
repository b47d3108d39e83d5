package kvasync

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/kvengine/kverrors"
)

// readPool is a small fixed population of read-only *sql.DB handles
// opened against the same SQLite file as the primary connection. Each
// member is exactly one physical connection (MaxOpenConns(1)); a
// buffered channel of the members themselves doubles as the semaphore
// that bounds how many are in use at once.
type readPool struct {
	conns  chan *sql.DB
	all    []*sql.DB
	mu     sync.Mutex
	closed bool
}

// newReadPool opens size read-only connections against path. path must
// already have been resolved to a plain SQLite filesystem location (see
// kvstore's backend detection); in-memory databases cannot be shared
// across connections so a read pool against ":memory:" is rejected.
func newReadPool(path string, size int) (*readPool, error) {
	if size <= 0 {
		return &readPool{}, nil
	}
	if path == ":memory:" {
		return nil, kverrors.Configuration("ReadPoolSize", "cannot open a read-only pool against an in-memory database")
	}

	dsn := path
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "file://"):
		dsn = strings.TrimPrefix(dsn, "file://")
	}
	if strings.HasPrefix(dsn, "file:") {
		if strings.Contains(dsn, "?") {
			dsn += "&mode=ro"
		} else {
			dsn += "?mode=ro"
		}
	} else {
		dsn = "file:" + dsn + "?mode=ro"
	}

	p := &readPool{conns: make(chan *sql.DB, size)}
	for i := 0; i < size; i++ {
		conn, err := sql.Open("sqlite3", dsn)
		if err != nil {
			p.closeAll()
			return nil, kverrors.Engine(err)
		}
		conn.SetMaxOpenConns(1)
		p.all = append(p.all, conn)
		p.conns <- conn
	}
	return p, nil
}

// enabled reports whether this pool has any connections to offer.
func (p *readPool) enabled() bool {
	return p != nil && len(p.all) > 0
}

// acquire blocks until a pooled connection is available or ctx is done.
func (p *readPool) acquire(ctx context.Context) (*sql.DB, error) {
	select {
	case conn := <-p.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *readPool) release(conn *sql.DB) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.conns <- conn
}

// fetchOne runs query against a pooled connection and scans the first
// row into dest, mirroring kvstore.DB.FetchOne's error shape.
func (p *readPool) fetchOne(ctx context.Context, query string, args []any, dest ...any) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return kverrors.Engine(err)
	}
	defer p.release(conn)

	row := conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(dest...); err != nil {
		return kverrors.Engine(err)
	}
	return nil
}

// fetchAll runs query against a pooled connection and returns every row
// as a column-name -> value map, mirroring kvstore.DB.FetchAll.
func (p *readPool) fetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	defer p.release(conn)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kverrors.Engine(err)
	}
	defer rows.Close()

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
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, kverrors.Engine(err)
	}
	return out, nil
}

func (p *readPool) closeAll() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for _, conn := range p.all {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
