package kv

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

type item struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func stores(t *testing.T) map[string]Store[item] {
	return map[string]Store[item]{
		"map":    NewMap[item](),
		"sqlite": NewSQLite[item](newTestDB(t), "items"),
	}
}

func TestStoreGetPutDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("get missing: ok=%v err=%v", ok, err)
			}

			if err := s.Put(ctx, "a", item{Name: "alpha", Count: 1, Tags: []string{"x"}}); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, ok, err := s.Get(ctx, "a")
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.Name != "alpha" || got.Count != 1 || len(got.Tags) != 1 {
				t.Errorf("unexpected value %+v", got)
			}

			s.Put(ctx, "a", item{Name: "alpha", Count: 2})
			got, _, _ = s.Get(ctx, "a")
			if got.Count != 2 {
				t.Errorf("expected overwrite, got count %d", got.Count)
			}

			if err := s.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "a"); ok {
				t.Error("expected key gone after delete")
			}
			if err := s.Delete(ctx, "a"); err != nil {
				t.Errorf("delete absent key: %v", err)
			}
		})
	}
}

func TestStoreScanPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Put(ctx, "role:b", item{Name: "b"})
			s.Put(ctx, "role:a", item{Name: "a"})
			s.Put(ctx, "sess:1", item{Name: "s"})
			s.Put(ctx, "role_x", item{Name: "underscore"})

			entries, err := s.Scan(ctx, "role:")
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
			if entries[0].Key != "role:a" || entries[1].Key != "role:b" {
				t.Errorf("expected ordered keys, got %s, %s", entries[0].Key, entries[1].Key)
			}

			all, _ := Keys[item](ctx, s, "")
			if len(all) != 4 {
				t.Errorf("expected 4 keys, got %d", len(all))
			}
		})
	}
}

func TestSQLiteBucketsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := NewSQLite[item](db, "a")
	b := NewSQLite[item](db, "b")

	a.Put(ctx, "k", item{Name: "from-a"})
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("bucket b should not see bucket a's key")
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Bucket != "a" || stats[0].Keys != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	km := NewKeyedMutex()
	counts := map[string]int{}
	var mapMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		for _, key := range []string{"x", "y"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := km.Lock(key)
				defer unlock()
				mapMu.Lock()
				counts[key]++
				mapMu.Unlock()
			}(key)
		}
	}
	wg.Wait()

	if counts["x"] != 50 || counts["y"] != 50 {
		t.Errorf("unexpected counts %v", counts)
	}
	if km.Len() != 0 {
		t.Errorf("expected idle keys released, %d remain", km.Len())
	}
}
