package cacheinfra

import (
	"context"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config drives the sturdyc-backed fetch-through cache.
type Config struct {
	// Capacity is the maximum number of entries. Required.
	Capacity int

	// NumShards is the number of independently locked shards. Required.
	NumShards int

	// TTL is the entry lifetime. Required.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when a shard is
	// full, between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh enables background refresh of hot entries before they
	// expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage memoizes "no such record" results.
	MissingRecordStorage bool

	// EvictionInterval overrides how often expired entries are swept.
	// Zero keeps sturdyc's default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig holds the four refresh windows sturdyc takes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the defaults the engine ships with: a ten-thousand
// entry cache with five-minute entries, early refresh, and negative
// caching.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}
}

// Validate reports whether the configuration can build a client.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
	)
	if err != nil {
		return err
	}
	if er := c.EarlyRefresh; er != nil {
		return validation.ValidateStruct(er,
			validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
		)
	}
	return nil
}

func (c Config) options() []sturdyc.Option {
	var opts []sturdyc.Option
	if c.EarlyRefresh != nil {
		opts = append(opts, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		opts = append(opts, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// ConfigError reports an invalid configuration field on one of the
// strategy backends.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// sturdycCache adapts a sturdyc client to cache.CacheService.
type sturdycCache struct {
	client *sturdyc.Client[any]
}

// NewSturdycCache validates cfg and builds the fetch-through cache backend.
func NewSturdycCache(cfg Config) (*sturdycCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &sturdycCache{client: client}, nil
}

// GetOrFetch serves key from the cache, running fetchFn on a miss. fetchFn
// must look like func(context.Context) (T, error); the loader arrives as
// `any` because the CacheService interface cannot carry T, so the shape is
// checked here before sturdyc sees it.
func (s *sturdycCache) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	call, err := asLoader(fetchFn)
	if err != nil {
		return nil, err
	}
	return s.client.GetOrFetch(ctx, key, call)
}

// asLoader normalizes fetchFn into the func(ctx) (any, error) shape
// sturdyc's any-typed client wants.
func asLoader(fetchFn any) (func(context.Context) (any, error), error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn, nil
	}

	fv := reflect.ValueOf(fetchFn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}
	ft := fv.Type()
	if ft.NumIn() != 1 || ft.NumOut() != 2 {
		return nil, &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}
	if !ft.In(0).Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
		return nil, &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}
	if !ft.Out(1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return nil, &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return func(ctx context.Context) (any, error) {
		results := fv.Call([]reflect.Value{reflect.ValueOf(ctx)})
		var out any
		if rv := results[0]; rv.IsValid() && rv.CanInterface() {
			out = rv.Interface()
		}
		var err error
		if ev := results[1]; ev.IsValid() && !ev.IsNil() {
			err = ev.Interface().(error)
		}
		return out, err
	}, nil
}

// Delete drops one entry so the next GetOrFetch reloads it.
func (s *sturdycCache) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix drops every entry whose key starts with prefix. sturdyc
// has no prefix index, so this scans the resident key set.
func (s *sturdycCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys drops the listed entries.
func (s *sturdycCache) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
