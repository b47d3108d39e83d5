package kvstore

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore/codec"
	"github.com/goliatone/kvengine/kvstore/sqlsafety"
)

// NoClauseLengthLimit disables the SQL safety layer's clause-length cap
// when assigned to Config.MaxClauseLength, per spec.md's "set to nil to
// disable" (Go has no nil int, so this sentinel fills that role). The
// bare zero value keeps meaning "caller didn't set this field" and is
// resolved to DefaultMaxClauseLength in withDefaults, consistent with
// every other zero-value field in Config.
const NoClauseLengthLimit = sqlsafety.NoClauseLengthLimit

// DefaultMaxClauseLength is the cap applied when MaxClauseLength is left
// at its Go zero value.
const DefaultMaxClauseLength = sqlsafety.DefaultMaxClauseLength

// Config carries every option exposed by the storage core, matching the
// configuration table in the engine's design one field at a time.
type Config struct {
	// Table names the primary key/value table. Defaults to "data".
	Table string

	// BulkLoad, when true, runs LoadAll during Open.
	BulkLoad bool

	// Optimize applies the default PRAGMA set at Open (WAL, synchronous
	// NORMAL, mmap, page/cache size, temp store).
	Optimize bool

	// CacheSizeMB sizes the engine's own page cache (PRAGMA cache_size).
	CacheSizeMB int

	// BusyTimeout sets PRAGMA busy_timeout when non-zero.
	BusyTimeout time.Duration

	// ExclusiveLock sets PRAGMA locking_mode = EXCLUSIVE when true.
	ExclusiveLock bool

	// WalAutocheckpoint sets PRAGMA wal_autocheckpoint (in pages) when non-zero.
	WalAutocheckpoint int

	// StrictSQLValidation selects hard-error (true) vs. warn-and-proceed
	// (false) behavior for the SQL safety layer.
	StrictSQLValidation bool

	// AllowedSQLFunctions extends the default function allow-list at the
	// handle level.
	AllowedSQLFunctions []string

	// ForbiddenSQLFunctions denies function calls at the handle level;
	// always wins over any allow-list.
	ForbiddenSQLFunctions []string

	// MaxClauseLength caps free-form clause length; 0 selects the package
	// default of 1000. Set to NoClauseLengthLimit to disable the cap.
	MaxClauseLength int

	// CacheStrategy selects the row-cache backend: unbounded/lru/ttl.
	CacheStrategy cache.StrategyKind

	// CacheSize is the LRU capacity; required when CacheStrategy is "lru".
	CacheSize int

	// CacheTTL bounds entry lifetime; required when CacheStrategy is "ttl".
	CacheTTL time.Duration

	// CachePersistenceTTL additionally stamps every written row with its
	// insertion time and, on read, treats a row older than CacheTTL as
	// stale: Get/GetDefault/LoadAll hide it (kverrors.KeyMissing, as if
	// the key were absent) instead of returning it and repopulating the
	// cache from it. The row itself is never deleted; a subsequent Set
	// re-stamps it and makes it visible again. Requires CacheTTL to be
	// set; the duration reused is CacheTTL itself.
	CachePersistenceTTL bool

	// EncryptionKey enables value-level authenticated encryption when
	// non-empty; EncryptionMode selects the AEAD/Fernet transform.
	EncryptionKey  []byte
	EncryptionMode codec.Mode

	// MaxWorkers bounds how many async calls may be queued or running at
	// once; a single worker runs them in submission order (kvasync only).
	MaxWorkers int

	// ReadPoolSize sizes the async façade's read-only connection pool;
	// 0 disables it (kvasync only).
	ReadPoolSize int

	// Warner receives non-strict validation warnings; defaults to
	// kverrors.DefaultWarner() when nil.
	Warner kverrors.Warner
}

// DefaultConfig returns the package defaults. Open fills only Table,
// MaxClauseLength, CacheStrategy, MaxWorkers and CacheSizeMB from them
// when left at zero; Optimize and StrictSQLValidation keep the caller's
// value, so a zero-value Config runs with both off.
func DefaultConfig() Config {
	return Config{
		Table:               "data",
		Optimize:            true,
		CacheSizeMB:         64,
		MaxClauseLength:     DefaultMaxClauseLength,
		StrictSQLValidation: true,
		CacheStrategy:       cache.StrategyUnbounded,
		MaxWorkers:          5,
	}
}

// withDefaults fills unset fields from DefaultConfig without overriding
// anything the caller explicitly set.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Table == "" {
		c.Table = d.Table
	}
	// A zero value means the caller never touched the field, so it still
	// picks up the package default; NoClauseLengthLimit is a deliberate
	// choice and must survive untouched.
	if c.MaxClauseLength == 0 {
		c.MaxClauseLength = d.MaxClauseLength
	}
	if c.CacheStrategy == "" {
		c.CacheStrategy = d.CacheStrategy
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = d.MaxWorkers
	}
	if c.CacheSizeMB == 0 {
		c.CacheSizeMB = d.CacheSizeMB
	}
	return c
}

// Validate checks Config field values that can be checked independent of
// the filesystem or the engine connection.
func (c Config) Validate() error {
	if err := validation.Validate(c.Table, validation.Required, validation.Match(tableNamePattern)); err != nil {
		return kverrors.Configuration("Table", err.Error())
	}
	if c.MaxClauseLength != NoClauseLengthLimit {
		if err := validation.Validate(c.MaxClauseLength, validation.Min(0)); err != nil {
			return kverrors.Configuration("MaxClauseLength", err.Error())
		}
	}
	if err := validation.Validate(c.MaxWorkers, validation.Min(0)); err != nil {
		return kverrors.Configuration("MaxWorkers", err.Error())
	}
	if err := validation.Validate(c.ReadPoolSize, validation.Min(0)); err != nil {
		return kverrors.Configuration("ReadPoolSize", err.Error())
	}
	switch c.CacheStrategy {
	case cache.StrategyUnbounded, cache.StrategyLRU, cache.StrategyTTL, "":
	default:
		return kverrors.Configuration("CacheStrategy", "unknown strategy "+string(c.CacheStrategy))
	}
	if c.CacheStrategy == cache.StrategyLRU && c.CacheSize <= 0 {
		return kverrors.Configuration("CacheSize", "must be greater than 0 when CacheStrategy is lru")
	}
	if c.CacheStrategy == cache.StrategyTTL && c.CacheTTL <= 0 {
		return kverrors.Configuration("CacheTTL", "must be greater than 0 when CacheStrategy is ttl")
	}
	if c.CachePersistenceTTL && c.CacheTTL <= 0 {
		return kverrors.Configuration("CachePersistenceTTL", "requires CacheTTL to be set")
	}
	if len(c.EncryptionKey) > 0 && c.EncryptionMode == codec.ModeNone {
		return kverrors.Configuration("EncryptionMode", "required when EncryptionKey is set")
	}
	return nil
}

func (c Config) cacheStrategyConfig() cache.StrategyConfig {
	return cache.StrategyConfig{
		Kind:     c.CacheStrategy,
		Capacity: c.CacheSize,
		TTL:      c.CacheTTL,
	}
}

func (c Config) effectivePersistenceTTL() time.Duration {
	if c.CachePersistenceTTL {
		return c.CacheTTL
	}
	return 0
}
