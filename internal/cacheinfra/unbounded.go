package cacheinfra

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// unboundedStrategy never evicts; it is a thin wrapper around a sharded,
// lock-free map so concurrent handles sharing a table can read/write the
// row cache without contending on a single mutex.
type unboundedStrategy struct {
	entries *xsync.MapOf[string, any]
}

// NewUnboundedStrategy builds the unbounded row-cache backend.
func NewUnboundedStrategy() *unboundedStrategy {
	return &unboundedStrategy{entries: xsync.NewMapOf[string, any]()}
}

func (s *unboundedStrategy) TryGet(key string) (any, bool) {
	return s.entries.Load(key)
}

func (s *unboundedStrategy) Put(key string, value any) {
	s.entries.Store(key, value)
}

func (s *unboundedStrategy) Invalidate(key string) {
	s.entries.Delete(key)
}

func (s *unboundedStrategy) InvalidateAll() {
	s.entries.Range(func(key string, _ any) bool {
		s.entries.Delete(key)
		return true
	})
}

func (s *unboundedStrategy) Contains(key string) bool {
	_, ok := s.entries.Load(key)
	return ok
}

func (s *unboundedStrategy) Len() int {
	return s.entries.Size()
}
