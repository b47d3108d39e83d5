// Package testsupport holds the shared fixtures for tests that sit on top
// of the storage core: throwaway database files, pre-seeded handles, and
// value comparison helpers.
package testsupport

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/goliatone/kvengine/kvstore"
)

// DBPath returns a path for a throwaway database file. The file lives in a
// per-test temp directory, so parallel tests never collide and cleanup is
// automatic.
func DBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "kv.db")
}

// OpenDB opens a fresh engine file with cfg and closes it when the test
// finishes.
func OpenDB(t *testing.T, cfg kvstore.Config) *kvstore.DB {
	t.Helper()
	return OpenDBAt(t, DBPath(t), cfg)
}

// OpenDBAt opens the engine file at path with cfg and closes it when the
// test finishes. Use it with DBPath to exercise close-and-reopen flows
// against the same file.
func OpenDBAt(t *testing.T, path string, cfg kvstore.Config) *kvstore.DB {
	t.Helper()

	db, err := kvstore.Open(path, cfg)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Seed writes every entry of rows into db, failing the test on the first
// error.
func Seed(t *testing.T, db *kvstore.DB, rows map[string]any) {
	t.Helper()

	ctx := context.Background()
	for key, value := range rows {
		if err := db.Set(ctx, key, value); err != nil {
			t.Fatalf("seed %q: %v", key, err)
		}
	}
}

// Equal fails the test unless got and want are deeply equal. Decoded JSON
// trees compare structurally, so this is the right comparison for values
// read back through the codec.
func Equal(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}
