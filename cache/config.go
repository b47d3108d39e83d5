package cache

import (
	"time"

	"github.com/goliatone/kvengine/internal/cacheinfra"
)

// Config configures the fetch-through CacheService backend. It mirrors
// cacheinfra.Config so callers never import the internal package.
type Config struct {
	// Capacity is the maximum number of memoized results.
	Capacity int

	// NumShards spreads entries across independent locks. Higher values
	// help under concurrent load at a small memory cost.
	NumShards int

	// TTL is how long a memoized result stays valid.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache
	// hits Capacity, between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh, when set, refreshes hot entries before they expire so
	// readers never stall on a cold fetch.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys whose fetch found nothing, so
	// repeated lookups of absent records skip the database.
	MissingRecordStorage bool

	// EvictionInterval is how often expired entries are swept. Zero keeps
	// the backend default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors the backend's early-refresh window options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the defaults used by pkg/di when the caller does
// not tune the fetch cache.
func DefaultConfig() Config {
	return fromInternal(cacheinfra.DefaultConfig())
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService builds the default CacheService backend from cfg.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycCache(cfg.toInternal())
}

func (c Config) toInternal() cacheinfra.Config {
	out := cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
	if c.EarlyRefresh != nil {
		out.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}
	return out
}

func fromInternal(cfg cacheinfra.Config) Config {
	out := Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
	if cfg.EarlyRefresh != nil {
		out.EarlyRefresh = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}
	return out
}
