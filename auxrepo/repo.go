package auxrepo

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kvstore"
)

// Base is the slice of repository.Repository[T] the cached wrapper drives.
// Any go-repository-bun repository satisfies it.
type Base[T any] interface {
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error)
	Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
	DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error
	GetScopeDefaults() repository.ScopeDefaults
}

// listPage carries List's (records, total) pair through the cache as one
// value.
type listPage[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Repo serves repeated reads from a fetch-through cache and invalidates
// the record type's cached results after every write it performs.
type Repo[T any] struct {
	base      Base[T]
	fetch     cache.CacheService
	keys      cache.KeySerializer
	namespace string
}

// New wraps base with read caching. The namespace is derived from T's type
// name, so two Repos over the same record type share cached results only
// if they also share the CacheService.
func New[T any](base Base[T], fetch cache.CacheService, keys cache.KeySerializer) *Repo[T] {
	return &Repo[T]{
		base:      base,
		fetch:     fetch,
		keys:      keys,
		namespace: namespaceFor[T](),
	}
}

// ForDB builds the fetch cache from cfg and wraps base, first verifying
// that the auxiliary table actually exists in db's file. It is the wiring
// point between the key/value engine and its relational side tables.
func ForDB[T any](ctx context.Context, db *kvstore.DB, table string, base Base[T], cfg cache.Config) (*Repo[T], error) {
	ok, err := db.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("auxrepo: table %q does not exist in %s", table, db.Path())
	}

	fetch, err := cache.NewCacheService(cfg)
	if err != nil {
		return nil, err
	}
	return New(base, fetch, cache.NewDefaultKeySerializer()), nil
}

// Base returns the wrapped repository for the operations Repo does not
// cache (transactions, raw SQL, force deletes).
func (r *Repo[T]) Base() Base[T] {
	return r.base
}

// scopeArgs prepends the resolved scope state to args when scoping is in
// play, so differently scoped callers never share a cache entry.
func (r *Repo[T]) scopeArgs(ctx context.Context, args []any) []any {
	state := repository.ResolveScopeState(ctx, r.base.GetScopeDefaults(), repository.ScopeOperationSelect)
	if state.IsZero() {
		return args
	}
	return append([]any{state}, args...)
}

func criteriaArgs[C any](criteria []C) []any {
	if len(criteria) == 0 {
		return nil
	}
	args := make([]any, len(criteria))
	for i, c := range criteria {
		args[i] = c
	}
	return args
}

// Get memoizes single-record criteria lookups.
func (r *Repo[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	key := r.readKey("get", r.scopeArgs(ctx, criteriaArgs(criteria)))
	return cache.GetOrFetch(ctx, r.fetch, key, func(ctx context.Context) (T, error) {
		return r.base.Get(ctx, criteria...)
	})
}

// GetByID memoizes primary-key lookups.
func (r *Repo[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	args := append([]any{id}, criteriaArgs(criteria)...)
	key := r.readKey("get_by_id", r.scopeArgs(ctx, args))
	return cache.GetOrFetch(ctx, r.fetch, key, func(ctx context.Context) (T, error) {
		return r.base.GetByID(ctx, id, criteria...)
	})
}

// GetByIdentifier memoizes natural-key lookups.
func (r *Repo[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	args := append([]any{identifier}, criteriaArgs(criteria)...)
	key := r.readKey("get_by_identifier", r.scopeArgs(ctx, args))
	return cache.GetOrFetch(ctx, r.fetch, key, func(ctx context.Context) (T, error) {
		return r.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// List memoizes the records and total count together.
func (r *Repo[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key := r.readKey("list", r.scopeArgs(ctx, criteriaArgs(criteria)))
	page, err := cache.GetOrFetch(ctx, r.fetch, key, func(ctx context.Context) (listPage[T], error) {
		records, total, err := r.base.List(ctx, criteria...)
		return listPage[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Records, page.Total, nil
}

// Count memoizes row counts.
func (r *Repo[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key := r.readKey("count", r.scopeArgs(ctx, criteriaArgs(criteria)))
	return cache.GetOrFetch(ctx, r.fetch, key, func(ctx context.Context) (int, error) {
		return r.base.Count(ctx, criteria...)
	})
}

// Create inserts through the base repository and drops the cached results
// for this record type.
func (r *Repo[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.base.Create(ctx, record, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return result, err
}

// CreateMany inserts a batch and drops the cached results.
func (r *Repo[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := r.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return result, err
}

// Update writes through and drops the cached results.
func (r *Repo[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.Update(ctx, record, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return result, err
}

// UpdateMany writes a batch through and drops the cached results.
func (r *Repo[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return result, err
}

// Upsert writes through and drops the cached results.
func (r *Repo[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.Upsert(ctx, record, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return result, err
}

// Delete removes the record and drops the cached results.
func (r *Repo[T]) Delete(ctx context.Context, record T) error {
	err := r.base.Delete(ctx, record)
	if err == nil {
		r.invalidate(ctx)
	}
	return err
}

// DeleteWhere removes by criteria and drops the cached results.
func (r *Repo[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		r.invalidate(ctx)
	}
	return err
}

// invalidate drops everything cached under this record type's namespace.
// Writes against auxiliary tables are rare next to reads, so one coarse
// prefix drop keeps coherence without tracking which keys a given write
// could have touched.
func (r *Repo[T]) invalidate(ctx context.Context) {
	_ = r.fetch.DeleteByPrefix(ctx, r.tablePrefix())
}
