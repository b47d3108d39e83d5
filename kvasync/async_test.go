package kvasync

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/kvengine/kverrors"
	"github.com/goliatone/kvengine/kvstore"
)

func openTestDB(t *testing.T, cfg Config) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAsyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, Config{})

	if _, err := db.Set(ctx, "greeting", "hello").Await(ctx); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := db.Get(ctx, "greeting").Await(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Get = %v, want hello", got)
	}
}

func TestAsyncWriteOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, Config{})

	const n = 50
	var futures [n]*Future[done]
	for i := 0; i < n; i++ {
		futures[i] = db.Set(ctx, "counter", fmt.Sprintf("%d", i))
	}
	for _, f := range futures {
		if _, err := f.Await(ctx); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	got, err := db.Get(ctx, "counter").Await(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != fmt.Sprintf("%d", n-1) {
		t.Fatalf("final counter value = %v, want %d (submission order not preserved)", got, n-1)
	}
}

func TestAsyncConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, Config{})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			if _, err := db.Set(ctx, key, i).Await(ctx); err != nil {
				errs <- err
				return
			}
			v, err := db.Get(ctx, key).Await(ctx)
			if err != nil {
				errs <- err
				return
			}
			if v != i {
				errs <- fmt.Errorf("key %s = %v, want %d", key, v, i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestAsyncAwaitCancellation(t *testing.T) {
	db := openTestDB(t, Config{})

	// Saturate the lane so the next Set sits in the queue long enough
	// for a canceled Await to observe context.Canceled instead of the
	// real result.
	block := make(chan struct{})
	blocker := submit(db.lane, func() (done, error) {
		<-block
		return done{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	f := db.Set(context.Background(), "k", "v")
	cancel()

	if _, err := f.Await(ctx); err != context.Canceled {
		t.Fatalf("Await error = %v, want context.Canceled", err)
	}

	close(block)
	if _, err := blocker.Await(context.Background()); err != nil {
		t.Fatalf("blocker: %v", err)
	}

	// The Set job itself still ran to completion even though this
	// caller stopped waiting for it.
	got, err := db.Get(context.Background(), "k").Await(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Fatalf("Get = %v, want v (in-flight job should not have been aborted by cancellation)", got)
	}
}

func TestAsyncSubTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, Config{})

	tbl, err := db.Table(ctx, "sessions")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}

	if _, err := tbl.Set(ctx, "sid", "abc").Await(ctx); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := db.Get(ctx, "sid").Await(ctx); err == nil || !kverrors.IsKeyMissing(err) {
		t.Fatalf("parent leaked sub-table key, err = %v", err)
	}

	if _, err := tbl.Close().Await(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := db.Get(ctx, "any").Await(ctx); err != nil && kverrors.IsClosed(err) {
		t.Fatalf("parent reported closed after sub-table Close")
	}
}

func TestAsyncReadPool(t *testing.T) {
	ctx := context.Background()
	cfg := Config{ReadPoolSize: 2}
	db := openTestDB(t, cfg)

	if _, err := db.SQLInsert(ctx, db.store.Name(), map[string]any{"key": "r1", "value": `"v1"`}).Await(ctx); err != nil {
		t.Fatalf("SQLInsert: %v", err)
	}

	f := db.FetchAll(ctx, fmt.Sprintf(`SELECT key, value FROM %q WHERE key = ?`, db.store.Name()), "r1")
	rows, err := f.Await(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 1 || rows[0]["key"] != "r1" {
		t.Fatalf("FetchAll = %#v", rows)
	}
}

func TestAsyncReadPoolRejectsWrites(t *testing.T) {
	ctx := context.Background()
	cfg := Config{ReadPoolSize: 1}
	db := openTestDB(t, cfg)

	query := fmt.Sprintf(`INSERT INTO %q (key, value) VALUES (?, ?)`, db.store.Name())
	_, err := db.FetchOne(ctx, query, []any{"k", `"v"`}, new(string)).Await(ctx)
	if err == nil {
		t.Fatal("expected the read-only pool to reject a mutating statement")
	}
	if !kverrors.IsEngine(err) {
		t.Fatalf("FetchOne err = %v, want a wrapped engine error", err)
	}

	// The primary lane is unaffected: writes keep working after a pooled
	// read-only connection rejects one.
	if _, err := db.Set(ctx, "k", "v").Await(ctx); err != nil {
		t.Fatalf("Set after pool rejection: %v", err)
	}
}

func TestAsyncReadPoolRejectsInMemory(t *testing.T) {
	cfg := Config{ReadPoolSize: 1}
	_, err := Open(":memory:", cfg)
	if err == nil || !kverrors.IsConfiguration(err) {
		t.Fatalf("Open err = %v, want a configuration error", err)
	}
}

func TestAsyncWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, Config{})

	_, err := db.WithTransaction(ctx, func(ctx context.Context, txn *kvstore.Txn) error {
		return txn.Execute(ctx, `INSERT INTO `+`"`+db.store.Name()+`"`+` (key, value) VALUES (?, ?)`, "tx-key", `"tx-value"`)
	}).Await(ctx)
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	got, err := db.Get(ctx, "tx-key").Await(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "tx-value" {
		t.Fatalf("Get = %v, want tx-value", got)
	}
}

func TestAsyncCloseDrainsLane(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := Open(path, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	f := db.Set(ctx, "k", "v")
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.Await(ctx); err != nil {
		t.Fatalf("in-flight Set should have completed before Close returned: %v", err)
	}
}

func TestFutureAwaitTimeout(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Await(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Await err = %v, want DeadlineExceeded", err)
	}
}
