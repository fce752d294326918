package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestStore(t *testing.T, roles ...model.Role) (*Store, *clock, *role.Catalog) {
	t.Helper()
	c := newClock()
	cat := role.NewCatalog(kv.NewMap[model.Role]())
	for _, r := range roles {
		if _, err := cat.Create(context.Background(), r); err != nil {
			t.Fatalf("create role %s: %v", r.ID, err)
		}
	}
	s := New(kv.NewMap[[]model.Memory](), cat, Options{TTL: DefaultTTL(), Now: c.now})
	return s, c, cat
}

func TestPutSetsExpiryByType(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestStore(t)

	tests := []struct {
		typ  model.MemoryType
		want time.Duration
	}{
		{model.MemorySession, time.Hour},
		{model.MemoryUser, 30 * 24 * time.Hour},
		{model.MemoryKnowledge, 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		m, err := s.Put(ctx, PutParams{RoleID: "a", Content: "x", Type: tt.typ})
		if err != nil {
			t.Fatalf("put %s: %v", tt.typ, err)
		}
		if m.ExpiresAt == nil {
			t.Fatalf("%s: expected expires_at", tt.typ)
		}
		if got := m.ExpiresAt.Sub(c.t); got != tt.want {
			t.Errorf("%s: expected ttl %v, got %v", tt.typ, tt.want, got)
		}
		if m.Importance != model.ImportanceMedium {
			t.Errorf("expected default importance medium, got %s", m.Importance)
		}
	}
}

func TestPutValidates(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	bad := []PutParams{
		{Content: "no role"},
		{RoleID: "a"},
		{RoleID: "a", Content: "x", Type: "episodic"},
		{RoleID: "a", Content: "x", Importance: "critical"},
	}
	for _, p := range bad {
		if _, err := s.Put(ctx, p); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("put %+v: expected ErrInvalidInput, got %v", p, err)
		}
	}
}

func TestExpiredMemoriesArePurgedOnRead(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestStore(t)

	s.Put(ctx, PutParams{RoleID: "a", Content: "short", Type: model.MemorySession})
	s.Put(ctx, PutParams{RoleID: "a", Content: "long", Type: model.MemoryKnowledge})

	c.advance(2 * time.Hour)
	got, err := s.List(ctx, ListParams{RoleID: "a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Content != "long" {
		t.Fatalf("expected only the knowledge memory, got %+v", got)
	}

	raw, _, _ := s.partitions.Get(ctx, "a")
	if len(raw) != 1 {
		t.Errorf("expected purged partition to be written back, has %d", len(raw))
	}
}

func TestShareIsOneLevelDeep(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	orig, err := s.Put(ctx, PutParams{
		RoleID: "a", Content: "shared fact", Type: model.MemoryKnowledge,
		Tags: []string{"q1"}, Category: "finance", SharedWith: []string{"b", "b", "a"},
		Embedding: []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(orig.SharedWith) != 1 {
		t.Fatalf("expected shared_with deduped to [b], got %v", orig.SharedWith)
	}

	bMems, _ := s.List(ctx, ListParams{RoleID: "b"})
	if len(bMems) != 1 {
		t.Fatalf("expected one copy in b, got %d", len(bMems))
	}
	cp := bMems[0]
	if cp.ParentMemoryID != orig.ID {
		t.Errorf("expected parent_memory_id %s, got %s", orig.ID, cp.ParentMemoryID)
	}
	if len(cp.SharedWith) != 0 {
		t.Errorf("expected copy to share with nobody, got %v", cp.SharedWith)
	}
	if cp.ID == orig.ID {
		t.Error("expected copy to have its own id")
	}
	if cp.Content != orig.Content || cp.Category != orig.Category || !cp.ExpiresAt.Equal(*orig.ExpiresAt) {
		t.Errorf("copy differs from original: %+v", cp)
	}

	keys, _ := kv.Keys(ctx, s.partitions, "")
	if len(keys) != 2 {
		t.Errorf("expected partitions a and b only, got %v", keys)
	}

	noShared, _ := s.List(ctx, ListParams{RoleID: "b", SkipShared: true})
	if len(noShared) != 0 {
		t.Errorf("expected share copies dropped, got %d", len(noShared))
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	s.Put(ctx, PutParams{RoleID: "a", Content: "one", Type: model.MemoryUser, Category: "x", Tags: []string{"red"}})
	s.Put(ctx, PutParams{RoleID: "a", Content: "two", Type: model.MemoryKnowledge, Category: "y", Tags: []string{"blue"}})
	s.Put(ctx, PutParams{RoleID: "a", Content: "three", Type: model.MemoryKnowledge, Tags: []string{"red", "green"}})

	tests := []struct {
		name string
		p    ListParams
		want int
	}{
		{"all", ListParams{RoleID: "a"}, 3},
		{"type", ListParams{RoleID: "a", Type: model.MemoryKnowledge}, 2},
		{"category", ListParams{RoleID: "a", Category: "x"}, 1},
		{"any tag", ListParams{RoleID: "a", Tags: []string{"red", "blue"}}, 3},
		{"tag", ListParams{RoleID: "a", Tags: []string{"green"}}, 1},
		{"missing role", ListParams{RoleID: "zzz"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.p)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d, got %d", tt.want, len(got))
			}
		})
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	m, _ := s.Put(ctx, PutParams{RoleID: "a", Content: "hello"})
	got, err := s.Get(ctx, "a", m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hello" {
		t.Errorf("expected 'hello', got %q", got.Content)
	}
	if _, err := s.Get(ctx, "a", "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	s.Put(ctx, PutParams{RoleID: "src", Content: "to b", SharedWith: []string{"b"}})
	s.Put(ctx, PutParams{RoleID: "b", Content: "own user", Type: model.MemoryUser, Tags: []string{"t"}})
	s.Put(ctx, PutParams{RoleID: "b", Content: "own knowledge", Type: model.MemoryKnowledge, Category: "c"})

	n, err := s.Clear(ctx, ClearParams{RoleID: "b", SharedOnly: true})
	if err != nil || n != 1 {
		t.Fatalf("clear shared: n=%d err=%v", n, err)
	}

	n, _ = s.Clear(ctx, ClearParams{RoleID: "b", Type: model.MemoryUser, Tags: []string{"other"}})
	if n != 0 {
		t.Errorf("expected no match when tag filter misses, removed %d", n)
	}

	n, _ = s.Clear(ctx, ClearParams{RoleID: "b", Category: "c"})
	if n != 1 {
		t.Errorf("expected category clear to remove 1, removed %d", n)
	}

	n, _ = s.Clear(ctx, ClearParams{RoleID: "b"})
	if n != 1 {
		t.Errorf("expected unfiltered clear to remove the rest, removed %d", n)
	}

	n, err = s.Clear(ctx, ClearParams{RoleID: "never"})
	if err != nil || n != 0 {
		t.Errorf("expected missing partition no-op, n=%d err=%v", n, err)
	}
}

func TestSQLitePartitions(t *testing.T) {
	ctx := context.Background()
	db, err := kv.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := newClock()
	s := New(kv.NewSQLite[[]model.Memory](db, "memories"), nil, Options{TTL: DefaultTTL(), Now: c.now})
	m, err := s.Put(ctx, PutParams{RoleID: "a", Content: "persisted", Embedding: []float32{0.5, 0.25}, SharedWith: []string{"b"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened := New(kv.NewSQLite[[]model.Memory](db, "memories"), nil, Options{TTL: DefaultTTL(), Now: c.now})
	got, err := reopened.Get(ctx, "a", m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[1] != 0.25 {
		t.Errorf("embedding not preserved: %v", got.Embedding)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", got.CreatedAt, m.CreatedAt)
	}
	b, _ := reopened.List(ctx, ListParams{RoleID: "b"})
	if len(b) != 1 || b[0].ParentMemoryID != m.ID {
		t.Errorf("expected persisted share copy, got %+v", b)
	}
}
