package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/kvengine/kverrors"
)

// applyPragmas sets every opt-in PRAGMA (WAL mode, synchronous level,
// cache/mmap sizing, busy timeout, locking mode, checkpoint threshold).
// It is only ever called once, against the primary connection, right
// after the primary table is created.
func applyPragmas(ctx context.Context, conn *bun.DB, cfg Config) error {
	if !cfg.Optimize {
		return applyConnectionPragmas(ctx, conn, cfg)
	}

	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA mmap_size = 268435456`,
		fmt.Sprintf(`PRAGMA cache_size = -%d`, cfg.CacheSizeMB*1024),
		`PRAGMA temp_store = MEMORY`,
		`PRAGMA page_size = 4096`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return kverrors.Engine(err)
		}
	}

	return applyConnectionPragmas(ctx, conn, cfg)
}

// applyConnectionPragmas applies the PRAGMAs that are independent of
// Optimize: busy_timeout, exclusive locking and WAL autocheckpoint
// threshold.
func applyConnectionPragmas(ctx context.Context, conn *bun.DB, cfg Config) error {
	if cfg.BusyTimeout > 0 {
		stmt := fmt.Sprintf(`PRAGMA busy_timeout = %d`, cfg.BusyTimeout.Milliseconds())
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return kverrors.Engine(err)
		}
	}
	if cfg.ExclusiveLock {
		if _, err := conn.ExecContext(ctx, `PRAGMA locking_mode = EXCLUSIVE`); err != nil {
			return kverrors.Engine(err)
		}
	}
	if cfg.WalAutocheckpoint > 0 {
		stmt := fmt.Sprintf(`PRAGMA wal_autocheckpoint = %d`, cfg.WalAutocheckpoint)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return kverrors.Engine(err)
		}
	}
	return nil
}

// Checkpoint runs PRAGMA wal_checkpoint(mode) and returns the (busy, log,
// checkpointed) triple exactly as mattn/go-sqlite3 surfaces it.
func (db *DB) Checkpoint(ctx context.Context, mode string) (busy, log, checkpointed int, err error) {
	if err = db.closedErr(); err != nil {
		return 0, 0, 0, err
	}
	if mode == "" {
		mode = "PASSIVE"
	}
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(`PRAGMA wal_checkpoint(%s)`, mode))
	if scanErr := row.Scan(&busy, &log, &checkpointed); scanErr != nil {
		return 0, 0, 0, kverrors.Engine(scanErr)
	}
	return busy, log, checkpointed, nil
}

// Pragma reads a PRAGMA when value is empty, or sets it and returns the
// engine's acknowledgement otherwise.
func (db *DB) Pragma(ctx context.Context, name, value string) (string, error) {
	if err := db.closedErr(); err != nil {
		return "", err
	}
	if name == "" {
		return "", kverrors.Validation("pragma name cannot be empty")
	}

	stmt := "PRAGMA " + name
	if value != "" {
		stmt += " = " + value
	}

	row := db.conn.QueryRowContext(ctx, stmt)
	var out string
	if err := row.Scan(&out); err != nil {
		// Many PRAGMAs (e.g. journal_mode on a set call) return no rows;
		// treat that as success with an empty acknowledgement.
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", kverrors.Engine(err)
	}
	return out, nil
}
