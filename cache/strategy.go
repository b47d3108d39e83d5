package cache

import (
	"time"

	"github.com/goliatone/kvengine/internal/cacheinfra"
)

// StrategyKind selects one of the three row-cache backends a kvstore
// handle can use to memoize key/value lookups.
type StrategyKind string

const (
	// StrategyUnbounded never evicts; every key ever read or written stays
	// resident for the lifetime of the handle. Intended for small, fully
	// memory-resident tables (the bulk_load use case).
	StrategyUnbounded StrategyKind = "unbounded"

	// StrategyLRU evicts the least recently used entry once Capacity is
	// reached. Intended for large tables accessed with locality.
	StrategyLRU StrategyKind = "lru"

	// StrategyTTL expires entries a fixed duration after they were last
	// written, independent of access pattern or capacity.
	StrategyTTL StrategyKind = "ttl"
)

// StrategyConfig configures the row-cache strategy a kvstore handle uses.
// Capacity only applies to StrategyLRU; TTL only applies to StrategyTTL.
//
// Persisted-row staleness (CachePersistenceTTL in kvstore.Config) is a
// separate, on-disk concern handled by handleCore directly: it governs
// whether a row read from the table is still fresh enough to surface at
// all, independent of which in-memory Strategy is backing the handle.
type StrategyConfig struct {
	Kind StrategyKind

	// Capacity bounds the number of resident entries for StrategyLRU.
	// Must be greater than 0 when Kind is StrategyLRU.
	Capacity int

	// TTL bounds how long an entry stays resident for StrategyTTL. Must be
	// greater than 0 when Kind is StrategyTTL.
	TTL time.Duration
}

// Strategy is the row-level cache contract used directly by the storage
// core, distinct from CacheService's fetch-through contract used by
// auxrepo. A Strategy never talks to storage itself: it only
// remembers what TryGet/Put tell it, and Invalidate/InvalidateAll/
// Contains let the owning handle keep it consistent with the database.
type Strategy interface {
	TryGet(key string) (value any, ok bool)
	Put(key string, value any)
	Invalidate(key string)
	InvalidateAll()
	Contains(key string) bool
	Len() int
}

// NewStrategy builds the Strategy backend selected by cfg.Kind.
func NewStrategy(cfg StrategyConfig) (Strategy, error) {
	switch cfg.Kind {
	case StrategyUnbounded, "":
		return cacheinfra.NewUnboundedStrategy(), nil
	case StrategyLRU:
		return cacheinfra.NewLRUStrategy(cfg.Capacity)
	case StrategyTTL:
		return cacheinfra.NewTTLStrategy(cfg.TTL)
	default:
		return nil, &cacheinfra.ConfigError{Field: "Kind", Message: "unknown cache strategy " + string(cfg.Kind)}
	}
}
