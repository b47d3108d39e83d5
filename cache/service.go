package cache

import (
	"context"
	"errors"
)

// KeySerializer builds a stable cache key from a method name and the
// arguments that parameterize it. Two calls with equal arguments must map
// to the same key within a process.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn loads a value from the source of truth on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the read-through contract used to memoize query results
// for auxiliary tables. GetOrFetch takes the loader as `any` because Go
// interfaces cannot carry a method-level type parameter; the typed
// GetOrFetch function below is the front door callers should use.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// ErrInvalidResultType reports that a cached entry could not be asserted
// back to the type the caller asked for. It means two different call sites
// serialized to the same key with different result types.
var ErrInvalidResultType = errors.New("cache: cached value does not match requested type")

// GetOrFetch is the typed wrapper over CacheService.GetOrFetch. A nil
// cached interface value is returned as T's zero value so interface-typed
// results never panic on assertion.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
