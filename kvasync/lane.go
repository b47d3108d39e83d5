package kvasync

import (
	"sync"

	"github.com/goliatone/kvengine/kverrors"
)

// lane is the single-writer FIFO worker shared by a DB and every Table
// obtained from it, since all of them address the same physical
// connection (mirroring kvstore.DB.Table's single-connection sharing).
// Jobs run strictly one at a time and in submission order, so two
// Future-returning calls against the same DB always observe each other
// in the order they were submitted, never interleaved.
//
// sem is a separate, larger-capacity throttle: it bounds how many calls
// may be outstanding (queued or running) at once, independent of the
// fact that only one of them ever actually executes concurrently.
type lane struct {
	jobs chan func()
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newLane(maxWorkers int) *lane {
	l := &lane{
		jobs: make(chan func(), 64),
		sem:  make(chan struct{}, maxWorkers),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *lane) run() {
	defer l.wg.Done()
	for job := range l.jobs {
		job()
	}
}

func (l *lane) close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.jobs)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// submit enqueues fn and returns a Future that resolves once the
// primary lane worker has run it. After close, the Future resolves at
// once with a closed-connection error.
func submit[T any](l *lane, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		var zero T
		f.resolve(zero, kverrors.Closed(""))
		return f
	}
	l.sem <- struct{}{}
	l.jobs <- func() {
		defer func() { <-l.sem }()
		v, err := fn()
		f.resolve(v, err)
	}
	return f
}

// runAsync resolves a Future on its own goroutine instead of the
// primary lane. It is reserved for operations executed against the
// read-only connection pool, which is independent of the primary
// connection and therefore safe to run with genuine concurrency.
func runAsync[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		v, err := fn()
		f.resolve(v, err)
	}()
	return f
}
