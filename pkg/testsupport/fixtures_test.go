package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/kvengine/kvstore"
)

func TestOpenDBAndSeed(t *testing.T) {
	db := OpenDB(t, kvstore.Config{})
	Seed(t, db, map[string]any{
		"a": "one",
		"b": map[string]any{"nested": true},
	})

	ctx := context.Background()
	got, err := db.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	Equal(t, got, "one")
}

func TestOpenDBAtReopensSameFile(t *testing.T) {
	path := DBPath(t)

	first := OpenDBAt(t, path, kvstore.Config{})
	Seed(t, first, map[string]any{"k": "v"})
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := OpenDBAt(t, path, kvstore.Config{})
	got, err := second.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	Equal(t, got, "v")
}
