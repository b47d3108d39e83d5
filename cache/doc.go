// Package cache holds the two caching contracts the engine uses.
//
// # Row cache (Strategy)
//
// Strategy is the contract the storage core (kvstore) programs against for
// its per-handle key/value row cache. A Strategy is a passive store: the
// owning handle decides what goes in and when entries are invalidated, so
// the cache/DB coherence rules live in kvstore, not here. Three backends
// are selectable at open time via StrategyConfig:
//
//   - StrategyUnbounded: never evicts
//   - StrategyLRU: capacity bounded, least-recently-used eviction
//   - StrategyTTL: time bounded, lazy expiry on read
//
// # Fetch-through cache (CacheService)
//
// CacheService is a read-through memoization contract used by auxrepo to
// cache query results against the auxiliary relational tables hosted in the
// same database file. Unlike Strategy it owns the fetch: GetOrFetch runs
// the supplied loader on a miss and remembers the result, with stampede
// protection and negative caching provided by the backing implementation
// (see internal/cacheinfra). KeySerializer turns a method name plus its
// arguments into a stable cache key so identical queries collapse onto one
// entry.
//
// The two contracts are deliberately separate: kvstore.Set always has the
// value in hand and needs a plain "remember this" store, while auxrepo only
// knows how to load a result and needs the loader-owning shape.
package cache
