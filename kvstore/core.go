package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/codec"
)

// handleCore implements the dict contract once, shared by both DB (the
// primary handle) and Table (a sub-table handle), since the
// two differ only in which physical table and which cache they address.
// DB and Table each embed a *handleCore and add their own lifecycle and
// (for DB) SQL-façade/schema/admin surface on top.
type handleCore struct {
	conn   *bun.DB
	table  string // raw, validated identifier
	quoted string // pre-quoted, safe to interpolate into SQL text
	cache  cache.Strategy
	codec  *codec.Codec

	// persistenceTTL, when non-zero, enables the persisted-row staleness
	// envelope: every write is stamped with its insertion time and reads
	// that find a row older than persistenceTTL hide it instead of
	// returning and re-caching it. Zero keeps the plain encode/decode
	// path, matching CachePersistenceTTL's default of off.
	persistenceTTL time.Duration
	now            func() time.Time

	allLoaded atomic.Bool

	// isClosed reports whether this handle (or, for a Table, its parent)
	// has been closed, returning the closed-connection error to surface.
	isClosed func() error
}

// encodeValue serializes value for storage, stamping it with the current
// time when persistence-TTL staleness checking is enabled.
func (h *handleCore) encodeValue(value any) (string, error) {
	if h.persistenceTTL <= 0 {
		return h.codec.Encode(value)
	}
	return h.codec.Encode(persistedEnvelope{Ts: h.now().Unix(), Value: value})
}

// decodeValue reverses encodeValue. fresh is always true when
// persistence-TTL checking is disabled; otherwise it reports whether the
// row's stamped insertion time is still within persistenceTTL of now.
func (h *handleCore) decodeValue(stored string) (value any, fresh bool, err error) {
	if h.persistenceTTL <= 0 {
		v, err := h.codec.DecodeAny(stored)
		return v, true, err
	}

	raw, err := h.codec.DecodeAny(stored)
	if err != nil {
		return nil, false, err
	}
	env, ok := raw.(map[string]any)
	if !ok {
		// Written before CachePersistenceTTL was enabled on this table;
		// treat as fresh rather than failing the read.
		return raw, true, nil
	}
	ts, _ := env["ts"].(float64)
	age := h.now().Sub(time.Unix(int64(ts), 0))
	return env["value"], age <= h.persistenceTTL, nil
}

// Get consults the cache first; on a miss it fetches the row, decodes it
// and installs it in the cache before returning. A missing key returns
// kverrors.KeyMissing.
func (h *handleCore) Get(ctx context.Context, key string) (any, error) {
	if err := h.isClosed(); err != nil {
		return nil, err
	}
	if v, ok := h.cache.TryGet(key); ok {
		return v, nil
	}

	var row kvRow
	err := h.conn.NewSelect().
		ColumnExpr("value").
		TableExpr(h.quoted).
		Where("key = ?", key).
		Scan(ctx, &row.Value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, kverrors.KeyMissing(key)
	case err != nil:
		return nil, kverrors.Engine(err)
	}

	v, fresh, err := h.decodeValue(row.Value)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, kverrors.KeyMissing(key)
	}
	h.cache.Put(key, v)
	return v, nil
}

// GetDefault behaves like Get but returns def instead of failing when key
// is absent.
func (h *handleCore) GetDefault(ctx context.Context, key string, def any) (any, error) {
	v, err := h.Get(ctx, key)
	if kverrors.IsKeyMissing(err) {
		return def, nil
	}
	return v, err
}

// Set encodes value and upserts the row (INSERT OR REPLACE semantics),
// then updates the cache. The cache is never touched if the write fails.
func (h *handleCore) Set(ctx context.Context, key string, value any) error {
	if err := h.isClosed(); err != nil {
		return err
	}

	encoded, err := h.encodeValue(value)
	if err != nil {
		return err
	}

	_, err = h.conn.ExecContext(ctx,
		`INSERT INTO `+h.quoted+` (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, encoded,
	)
	if err != nil {
		return kverrors.Engine(err)
	}

	h.cache.Put(key, value)
	return nil
}

// Delete removes key, first confirming it exists (via cache or DB).
// Missing key returns kverrors.KeyMissing; the DB row is removed before
// the cache entry is invalidated.
func (h *handleCore) Delete(ctx context.Context, key string) error {
	if err := h.isClosed(); err != nil {
		return err
	}

	exists, err := h.Contains(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return kverrors.KeyMissing(key)
	}

	if _, err := h.conn.ExecContext(ctx, `DELETE FROM `+h.quoted+` WHERE key = ?`, key); err != nil {
		return kverrors.Engine(err)
	}

	h.cache.Invalidate(key)
	return nil
}

// Contains reports whether key is present, checking the cache before
// falling back to the database. It never decodes the value.
func (h *handleCore) Contains(ctx context.Context, key string) (bool, error) {
	if err := h.isClosed(); err != nil {
		return false, err
	}
	if h.cache.Contains(key) {
		return true, nil
	}

	var exists int
	err := h.conn.NewSelect().
		ColumnExpr("1").
		TableExpr(h.quoted).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx, &exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, kverrors.Engine(err)
	}
	return true, nil
}

// Len executes COUNT(*) against the table; it is authoritative versus the
// cache, which may hold fewer entries than the table or none at all.
func (h *handleCore) Len(ctx context.Context) (int, error) {
	if err := h.isClosed(); err != nil {
		return 0, err
	}
	var n int
	if err := h.conn.NewSelect().ColumnExpr("COUNT(*)").TableExpr(h.quoted).Scan(ctx, &n); err != nil {
		return 0, kverrors.Engine(err)
	}
	return n, nil
}

// Keys fetches every key from the database. It does not warm the cache.
func (h *handleCore) Keys(ctx context.Context) ([]string, error) {
	if err := h.isClosed(); err != nil {
		return nil, err
	}
	var keys []string
	if err := h.conn.NewSelect().ColumnExpr("key").TableExpr(h.quoted).Scan(ctx, &keys); err != nil {
		return nil, kverrors.Engine(err)
	}
	return keys, nil
}

// LoadAll fetches every row, decodes it and installs it in the cache. It
// is idempotent and sets the all-loaded flag so repeat calls are cheap.
func (h *handleCore) LoadAll(ctx context.Context) error {
	if err := h.isClosed(); err != nil {
		return err
	}
	if h.allLoaded.Load() {
		return nil
	}

	var rows []kvRow
	if err := h.conn.NewSelect().ColumnExpr("key, value").TableExpr(h.quoted).Scan(ctx, &rows); err != nil {
		return kverrors.Engine(err)
	}

	for _, r := range rows {
		v, fresh, err := h.decodeValue(r.Value)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		h.cache.Put(r.Key, v)
	}

	h.allLoaded.Store(true)
	return nil
}

// Values forces LoadAll and returns a snapshot of every decoded value.
// Order is unspecified.
func (h *handleCore) Values(ctx context.Context) ([]any, error) {
	if err := h.isClosed(); err != nil {
		return nil, err
	}
	items, err := h.Items(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(items))
	for _, v := range items {
		values = append(values, v)
	}
	return values, nil
}

// Items/ToDict force LoadAll and return a full key->value snapshot.
func (h *handleCore) Items(ctx context.Context) (map[string]any, error) {
	if err := h.isClosed(); err != nil {
		return nil, err
	}
	if err := h.LoadAll(ctx); err != nil {
		return nil, err
	}

	keys, err := h.Keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := h.cache.TryGet(k)
		if !ok {
			// Written after LoadAll but before this read, or excluded from
			// the cache as a stale persisted row; fall through to Get,
			// treating a persistence-TTL miss as simply absent from the
			// snapshot rather than failing the whole call.
			v, err = h.Get(ctx, k)
			if kverrors.IsKeyMissing(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		out[k] = v
	}
	return out, nil
}

// ToDict is an alias for Items, matching the dict-like API surface.
func (h *handleCore) ToDict(ctx context.Context) (map[string]any, error) {
	return h.Items(ctx)
}

// Copy returns a detached snapshot of the table. It is the same shallow
// copy ToDict produces; mutating the returned map never touches the store
// or its cache.
func (h *handleCore) Copy(ctx context.Context) (map[string]any, error) {
	return h.Items(ctx)
}

// Clear truncates the table and empties the cache, resetting the
// all-loaded flag so the next LoadAll performs a fresh fetch.
func (h *handleCore) Clear(ctx context.Context) error {
	if err := h.isClosed(); err != nil {
		return err
	}
	if _, err := h.conn.ExecContext(ctx, `DELETE FROM `+h.quoted); err != nil {
		return kverrors.Engine(err)
	}
	h.cache.InvalidateAll()
	h.allLoaded.Store(false)
	return nil
}

// Update merges mapping into the store, matching the dict.update
// semantics (each key is set, overwriting any existing value). It shares
// BatchUpdate's all-or-nothing transaction.
func (h *handleCore) Update(ctx context.Context, mapping map[string]any) error {
	return h.BatchUpdate(ctx, mapping)
}

// Pop removes key and returns its previous value. If key is missing and
// hasDefault is false it returns kverrors.KeyMissing; if hasDefault is
// true it returns def instead without error.
func (h *handleCore) Pop(ctx context.Context, key string, hasDefault bool, def any) (any, error) {
	v, err := h.Get(ctx, key)
	if kverrors.IsKeyMissing(err) {
		if hasDefault {
			return def, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := h.Delete(ctx, key); err != nil {
		return nil, err
	}
	return v, nil
}

// SetDefault returns the current value for key if present, otherwise
// writes def and returns it.
func (h *handleCore) SetDefault(ctx context.Context, key string, def any) (any, error) {
	v, err := h.Get(ctx, key)
	switch {
	case kverrors.IsKeyMissing(err):
		if err := h.Set(ctx, key, def); err != nil {
			return nil, err
		}
		return def, nil
	case err != nil:
		return nil, err
	default:
		return v, nil
	}
}

// Refresh drops the cached entry for key, or every entry when key is nil,
// forcing the next read to consult the database.
func (h *handleCore) Refresh(ctx context.Context, key *string) error {
	if err := h.isClosed(); err != nil {
		return err
	}
	if key == nil {
		h.cache.InvalidateAll()
		h.allLoaded.Store(false)
		return nil
	}
	h.cache.Invalidate(*key)
	return nil
}

// IsCached reports whether key currently has a resident cache entry,
// without touching the database.
func (h *handleCore) IsCached(key string) bool {
	return h.cache.Contains(key)
}

// BatchUpdate applies mapping within a single transaction: either every
// key is written or none is, and the cache is only mutated after the
// transaction commits.
func (h *handleCore) BatchUpdate(ctx context.Context, mapping map[string]any) error {
	if err := h.isClosed(); err != nil {
		return err
	}
	if len(mapping) == 0 {
		return nil
	}

	type encoded struct {
		key   string
		value any
		text  string
	}
	rows := make([]encoded, 0, len(mapping))
	for k, v := range mapping {
		text, err := h.encodeValue(v)
		if err != nil {
			return err
		}
		rows = append(rows, encoded{key: k, value: v, text: text})
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return kverrors.Engine(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt := `INSERT INTO ` + h.quoted + ` (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, stmt, r.key, r.text); err != nil {
			return kverrors.Engine(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kverrors.Engine(err)
	}
	committed = true

	for _, r := range rows {
		h.cache.Put(r.key, r.value)
	}
	return nil
}

// BatchDelete removes keys within a single transaction: either every key
// is removed or none is, and cache invalidation only happens after
// commit.
func (h *handleCore) BatchDelete(ctx context.Context, keys []string) error {
	if err := h.isClosed(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return kverrors.Engine(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt := `DELETE FROM ` + h.quoted + ` WHERE key = ?`
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, stmt, k); err != nil {
			return kverrors.Engine(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kverrors.Engine(err)
	}
	committed = true

	for _, k := range keys {
		h.cache.Invalidate(k)
	}
	return nil
}
