// Package di wires the engine's pieces together: the storage handle, the
// fetch-through cache for auxiliary tables, and the key serializer, so
// applications construct everything through one entry point.
package di

import (
	"context"

	"github.com/goliatone/kvengine/auxrepo"
	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kvstore"
)

// Container owns one open engine handle plus the singletons layered on
// top of it.
type Container struct {
	db            *kvstore.DB
	fetchCache    cache.CacheService
	keySerializer cache.KeySerializer
}

// New opens the engine file at location and builds the shared fetch cache
// and key serializer. Closing the container closes the handle.
func New(location string, dbCfg kvstore.Config, cacheCfg cache.Config) (*Container, error) {
	fetchCache, err := cache.NewCacheService(cacheCfg)
	if err != nil {
		return nil, err
	}

	db, err := kvstore.Open(location, dbCfg)
	if err != nil {
		return nil, err
	}

	return &Container{
		db:            db,
		fetchCache:    fetchCache,
		keySerializer: cache.NewDefaultKeySerializer(),
	}, nil
}

// NewWithDefaults opens location with default storage and cache settings.
func NewWithDefaults(location string) (*Container, error) {
	return New(location, kvstore.Config{}, cache.DefaultConfig())
}

// DB returns the open engine handle.
func (c *Container) DB() *kvstore.DB {
	return c.db
}

// FetchCache returns the shared fetch-through cache backing cached
// repositories created from this container.
func (c *Container) FetchCache() cache.CacheService {
	return c.fetchCache
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Close closes the engine handle. Cached results die with the process;
// they are never persisted.
func (c *Container) Close() error {
	return c.db.Close()
}

// CachedRepo wraps base with read caching over the container's shared
// fetch cache, verifying that table exists in the container's file. Repos
// for different record types share the cache but never share entries:
// each type keys under its own namespace.
func CachedRepo[T any](ctx context.Context, c *Container, table string, base auxrepo.Base[T]) (*auxrepo.Repo[T], error) {
	if ok, err := c.db.TableExists(ctx, table); err != nil {
		return nil, err
	} else if !ok {
		return nil, &MissingTableError{Table: table, Path: c.db.Path()}
	}
	return auxrepo.New(base, c.fetchCache, c.keySerializer), nil
}

// MissingTableError reports that a cached repository was requested for an
// auxiliary table the engine file does not contain.
type MissingTableError struct {
	Table string
	Path  string
}

func (e *MissingTableError) Error() string {
	return "di: auxiliary table " + e.Table + " does not exist in " + e.Path
}
