package kvasync

import "context"

// dictCore is satisfied by both *kvstore.DB and *kvstore.Table: the
// dict contract they share, promoted from their common embedded handle.
// asyncCore mirrors it once, behind Futures, for whichever of the two
// it wraps.
type dictCore interface {
	Get(ctx context.Context, key string) (any, error)
	GetDefault(ctx context.Context, key string, def any) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Contains(ctx context.Context, key string) (bool, error)
	Len(ctx context.Context) (int, error)
	Keys(ctx context.Context) ([]string, error)
	Values(ctx context.Context) ([]any, error)
	Items(ctx context.Context) (map[string]any, error)
	ToDict(ctx context.Context) (map[string]any, error)
	Copy(ctx context.Context) (map[string]any, error)
	Clear(ctx context.Context) error
	Update(ctx context.Context, mapping map[string]any) error
	Pop(ctx context.Context, key string, hasDefault bool, def any) (any, error)
	SetDefault(ctx context.Context, key string, def any) (any, error)
	Refresh(ctx context.Context, key *string) error
	IsCached(key string) bool
	BatchUpdate(ctx context.Context, mapping map[string]any) error
	BatchDelete(ctx context.Context, keys []string) error
	LoadAll(ctx context.Context) error
}

// asyncCore dispatches every dictCore method onto lane, wrapping the
// result in a Future. done is a convenience return value for the
// error-only operations.
type asyncCore struct {
	core dictCore
	lane *lane
}

type done = struct{}

func (a *asyncCore) Get(ctx context.Context, key string) *Future[any] {
	return submit(a.lane, func() (any, error) { return a.core.Get(ctx, key) })
}

func (a *asyncCore) GetDefault(ctx context.Context, key string, def any) *Future[any] {
	return submit(a.lane, func() (any, error) { return a.core.GetDefault(ctx, key, def) })
}

func (a *asyncCore) Set(ctx context.Context, key string, value any) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.Set(ctx, key, value) })
}

func (a *asyncCore) Delete(ctx context.Context, key string) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.Delete(ctx, key) })
}

func (a *asyncCore) Contains(ctx context.Context, key string) *Future[bool] {
	return submit(a.lane, func() (bool, error) { return a.core.Contains(ctx, key) })
}

func (a *asyncCore) Len(ctx context.Context) *Future[int] {
	return submit(a.lane, func() (int, error) { return a.core.Len(ctx) })
}

func (a *asyncCore) Keys(ctx context.Context) *Future[[]string] {
	return submit(a.lane, func() ([]string, error) { return a.core.Keys(ctx) })
}

func (a *asyncCore) Values(ctx context.Context) *Future[[]any] {
	return submit(a.lane, func() ([]any, error) { return a.core.Values(ctx) })
}

func (a *asyncCore) Items(ctx context.Context) *Future[map[string]any] {
	return submit(a.lane, func() (map[string]any, error) { return a.core.Items(ctx) })
}

func (a *asyncCore) ToDict(ctx context.Context) *Future[map[string]any] {
	return submit(a.lane, func() (map[string]any, error) { return a.core.ToDict(ctx) })
}

func (a *asyncCore) Copy(ctx context.Context) *Future[map[string]any] {
	return submit(a.lane, func() (map[string]any, error) { return a.core.Copy(ctx) })
}

func (a *asyncCore) Clear(ctx context.Context) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.Clear(ctx) })
}

func (a *asyncCore) Update(ctx context.Context, mapping map[string]any) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.Update(ctx, mapping) })
}

func (a *asyncCore) Pop(ctx context.Context, key string, hasDefault bool, def any) *Future[any] {
	return submit(a.lane, func() (any, error) { return a.core.Pop(ctx, key, hasDefault, def) })
}

func (a *asyncCore) SetDefault(ctx context.Context, key string, def any) *Future[any] {
	return submit(a.lane, func() (any, error) { return a.core.SetDefault(ctx, key, def) })
}

func (a *asyncCore) Refresh(ctx context.Context, key *string) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.Refresh(ctx, key) })
}

// IsCached is still dispatched onto the lane (rather than answered
// inline) so it observes a concurrently submitted Set/Delete in
// submission order instead of racing ahead of it.
func (a *asyncCore) IsCached(key string) *Future[bool] {
	return submit(a.lane, func() (bool, error) { return a.core.IsCached(key), nil })
}

func (a *asyncCore) BatchUpdate(ctx context.Context, mapping map[string]any) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.BatchUpdate(ctx, mapping) })
}

func (a *asyncCore) BatchDelete(ctx context.Context, keys []string) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.BatchDelete(ctx, keys) })
}

func (a *asyncCore) LoadAll(ctx context.Context) *Future[done] {
	return submit(a.lane, func() (done, error) { return done{}, a.core.LoadAll(ctx) })
}
