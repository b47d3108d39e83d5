package di

import (
	"context"
	"errors"
	"fmt"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kvstore"
	"github.com/goliatone/kvengine/pkg/testsupport"
	"github.com/google/uuid"
)

type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

type noteRepo struct {
	rows map[string]Note
	gets int
}

func (r *noteRepo) Get(ctx context.Context, criteria ...repository.SelectCriteria) (Note, error) {
	r.gets++
	for _, row := range r.rows {
		return row, nil
	}
	return Note{}, fmt.Errorf("no rows")
}

func (r *noteRepo) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (Note, error) {
	r.gets++
	row, ok := r.rows[id]
	if !ok {
		return Note{}, fmt.Errorf("note %s not found", id)
	}
	return row, nil
}

func (r *noteRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (Note, error) {
	return r.GetByID(ctx, identifier, criteria...)
}

func (r *noteRepo) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]Note, int, error) {
	out := make([]Note, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, len(out), nil
}

func (r *noteRepo) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return len(r.rows), nil
}

func (r *noteRepo) Create(ctx context.Context, record Note, criteria ...repository.InsertCriteria) (Note, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	r.rows[record.ID] = record
	return record, nil
}

func (r *noteRepo) CreateMany(ctx context.Context, records []Note, criteria ...repository.InsertCriteria) ([]Note, error) {
	for i := range records {
		created, err := r.Create(ctx, records[i])
		if err != nil {
			return nil, err
		}
		records[i] = created
	}
	return records, nil
}

func (r *noteRepo) Update(ctx context.Context, record Note, criteria ...repository.UpdateCriteria) (Note, error) {
	r.rows[record.ID] = record
	return record, nil
}

func (r *noteRepo) UpdateMany(ctx context.Context, records []Note, criteria ...repository.UpdateCriteria) ([]Note, error) {
	for _, record := range records {
		r.rows[record.ID] = record
	}
	return records, nil
}

func (r *noteRepo) Upsert(ctx context.Context, record Note, criteria ...repository.UpdateCriteria) (Note, error) {
	return r.Update(ctx, record)
}

func (r *noteRepo) Delete(ctx context.Context, record Note) error {
	delete(r.rows, record.ID)
	return nil
}

func (r *noteRepo) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	r.rows = make(map[string]Note)
	return nil
}

func (r *noteRepo) GetScopeDefaults() repository.ScopeDefaults {
	return repository.ScopeDefaults{}
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewWithDefaults(testsupport.DBPath(t))
	if err != nil {
		t.Fatalf("NewWithDefaults: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestContainerOpensWorkingHandle(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	if err := c.DB().Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.DB().Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Fatalf("got %v, want v", got)
	}
}

func TestContainerRejectsBadCacheConfig(t *testing.T) {
	_, err := New(testsupport.DBPath(t), kvstore.Config{}, cache.Config{Capacity: -1})
	if err == nil {
		t.Fatal("expected error for invalid cache config")
	}
}

func TestContainerCloseClosesHandle(t *testing.T) {
	c, err := NewWithDefaults(testsupport.DBPath(t))
	if err != nil {
		t.Fatalf("NewWithDefaults: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.DB().Closed() {
		t.Fatal("handle still open after container close")
	}
}

func TestCachedRepoRequiresTable(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	base := &noteRepo{rows: make(map[string]Note)}

	_, err := CachedRepo[Note](ctx, c, "notes", base)
	var missing *MissingTableError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingTableError", err)
	}

	err = c.DB().CreateTable(ctx, "notes", []kvstore.ColumnDef{
		{Name: "id", Type: "TEXT", PrimaryKey: true},
		{Name: "body", Type: "TEXT"},
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	repo, err := CachedRepo[Note](ctx, c, "notes", base)
	if err != nil {
		t.Fatalf("CachedRepo: %v", err)
	}

	created, err := repo.Create(ctx, Note{Body: "hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := repo.GetByID(ctx, created.ID); err != nil {
			t.Fatalf("GetByID: %v", err)
		}
	}
	if base.gets != 1 {
		t.Fatalf("base saw %d gets, want 1", base.gets)
	}
}
