package auxrepo

import (
	"context"
	"fmt"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/kvengine/cache"
	"github.com/goliatone/kvengine/kvstore"
	"github.com/goliatone/kvengine/pkg/testsupport"
	"github.com/google/uuid"
)

type Account struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Balance int    `json:"balance"`
}

// memRepo is an in-memory Base[Account] that counts how often each read
// actually reaches it, so the tests can tell cache hits from misses.
type memRepo struct {
	rows   map[string]Account
	gets   int
	lists  int
	counts int
}

func newMemRepo(rows ...Account) *memRepo {
	m := &memRepo{rows: make(map[string]Account, len(rows))}
	for _, row := range rows {
		m.rows[row.ID] = row
	}
	return m
}

func (m *memRepo) Get(ctx context.Context, criteria ...repository.SelectCriteria) (Account, error) {
	m.gets++
	for _, row := range m.rows {
		return row, nil
	}
	return Account{}, fmt.Errorf("no rows")
}

func (m *memRepo) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (Account, error) {
	m.gets++
	row, ok := m.rows[id]
	if !ok {
		return Account{}, fmt.Errorf("account %s not found", id)
	}
	return row, nil
}

func (m *memRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (Account, error) {
	m.gets++
	for _, row := range m.rows {
		if row.Owner == identifier {
			return row, nil
		}
	}
	return Account{}, fmt.Errorf("account for %s not found", identifier)
}

func (m *memRepo) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]Account, int, error) {
	m.lists++
	out := make([]Account, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, len(out), nil
}

func (m *memRepo) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.counts++
	return len(m.rows), nil
}

func (m *memRepo) Create(ctx context.Context, record Account, criteria ...repository.InsertCriteria) (Account, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	m.rows[record.ID] = record
	return record, nil
}

func (m *memRepo) CreateMany(ctx context.Context, records []Account, criteria ...repository.InsertCriteria) ([]Account, error) {
	out := make([]Account, 0, len(records))
	for _, record := range records {
		created, err := m.Create(ctx, record)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, record Account, criteria ...repository.UpdateCriteria) (Account, error) {
	m.rows[record.ID] = record
	return record, nil
}

func (m *memRepo) UpdateMany(ctx context.Context, records []Account, criteria ...repository.UpdateCriteria) ([]Account, error) {
	for _, record := range records {
		m.rows[record.ID] = record
	}
	return records, nil
}

func (m *memRepo) Upsert(ctx context.Context, record Account, criteria ...repository.UpdateCriteria) (Account, error) {
	return m.Update(ctx, record)
}

func (m *memRepo) Delete(ctx context.Context, record Account) error {
	delete(m.rows, record.ID)
	return nil
}

func (m *memRepo) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.rows = make(map[string]Account)
	return nil
}

func (m *memRepo) GetScopeDefaults() repository.ScopeDefaults {
	return repository.ScopeDefaults{}
}

func testFetchCache(t *testing.T) cache.CacheService {
	t.Helper()
	svc, err := cache.NewCacheService(cache.Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	return svc
}

func newTestRepo(t *testing.T, base *memRepo) *Repo[Account] {
	t.Helper()
	return New[Account](base, testFetchCache(t), cache.NewDefaultKeySerializer())
}

func TestGetByIDServedFromCache(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	base := newMemRepo(Account{ID: id, Owner: "nana", Balance: 12})
	repo := newTestRepo(t, base)

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Owner != "nana" {
			t.Fatalf("got owner %q, want nana", got.Owner)
		}
	}
	if base.gets != 1 {
		t.Fatalf("base saw %d gets, want 1", base.gets)
	}
}

func TestListMemoizesRecordsAndTotal(t *testing.T) {
	ctx := context.Background()
	base := newMemRepo(
		Account{ID: uuid.New().String(), Owner: "a"},
		Account{ID: uuid.New().String(), Owner: "b"},
	)
	repo := newTestRepo(t, base)

	records, total, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("got %d records total %d, want 2/2", len(records), total)
	}

	if _, _, err := repo.List(ctx); err != nil {
		t.Fatalf("List again: %v", err)
	}
	if base.lists != 1 {
		t.Fatalf("base saw %d lists, want 1", base.lists)
	}
}

func TestWritesInvalidateReads(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	base := newMemRepo(Account{ID: id, Owner: "nana", Balance: 1})
	repo := newTestRepo(t, base)

	if _, err := repo.GetByID(ctx, id); err != nil {
		t.Fatalf("warm GetByID: %v", err)
	}
	if _, err := repo.Count(ctx); err != nil {
		t.Fatalf("warm Count: %v", err)
	}

	if _, err := repo.Update(ctx, Account{ID: id, Owner: "nana", Balance: 2}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Balance != 2 {
		t.Fatalf("got stale balance %d, want 2", got.Balance)
	}
	if base.gets != 2 {
		t.Fatalf("base saw %d gets, want 2 (cache dropped)", base.gets)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count after update: %v", err)
	}
	if count != 1 || base.counts != 2 {
		t.Fatalf("count=%d baseCounts=%d, want 1/2", count, base.counts)
	}
}

func TestDeleteWhereDropsEverything(t *testing.T) {
	ctx := context.Background()
	base := newMemRepo(Account{ID: uuid.New().String(), Owner: "a"})
	repo := newTestRepo(t, base)

	if _, _, err := repo.List(ctx); err != nil {
		t.Fatalf("warm List: %v", err)
	}
	if err := repo.DeleteWhere(ctx); err != nil {
		t.Fatalf("DeleteWhere: %v", err)
	}

	_, total, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List after DeleteWhere: %v", err)
	}
	if total != 0 {
		t.Fatalf("got stale total %d, want 0", total)
	}
	if base.lists != 2 {
		t.Fatalf("base saw %d lists, want 2", base.lists)
	}
}

func TestForDBVerifiesAuxTable(t *testing.T) {
	ctx := context.Background()
	db := testsupport.OpenDB(t, kvstore.Config{})
	base := newMemRepo()
	cfg := cache.Config{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10}

	if _, err := ForDB[Account](ctx, db, "accounts", base, cfg); err == nil {
		t.Fatal("expected error for missing table")
	}

	err := db.CreateTable(ctx, "accounts", []kvstore.ColumnDef{
		{Name: "id", Type: "TEXT", PrimaryKey: true},
		{Name: "owner", Type: "TEXT"},
		{Name: "balance", Type: "INTEGER"},
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	repo, err := ForDB[Account](ctx, db, "accounts", base, cfg)
	if err != nil {
		t.Fatalf("ForDB: %v", err)
	}

	created, err := repo.Create(ctx, Account{Owner: "nana"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Owner != "nana" {
		t.Fatalf("got owner %q, want nana", got.Owner)
	}
}
