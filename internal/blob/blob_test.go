package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/partynight/internal/blob"
	"github.com/playperu/partynight/internal/database"
	"github.com/playperu/partynight/internal/migrations"
)

func sqlStore(t *testing.T, name string) *blob.SQL {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return blob.NewSQL(db, name)
}

func TestStores(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) blob.Store
	}{
		{"memory", func(t *testing.T) blob.Store { return blob.NewMemory() }},
		{"file", func(t *testing.T) blob.Store {
			return blob.NewFile(filepath.Join(t.TempDir(), "nested", "state.json"))
		}},
		{"sql", func(t *testing.T) blob.Store { return sqlStore(t, "party") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := tt.store(t)

			got, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("read empty: %v", err)
			}
			if got != nil {
				t.Fatalf("read empty = %q, want nil", got)
			}

			for _, want := range []string{`{"v":1}`, `{"v":2}`} {
				if err := s.Write(ctx, []byte(want)); err != nil {
					t.Fatalf("write %s: %v", want, err)
				}
				got, err := s.Read(ctx)
				if err != nil {
					t.Fatalf("read: %v", err)
				}
				if string(got) != want {
					t.Errorf("read = %q, want %q", got, want)
				}
			}
		})
	}
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := blob.NewFile(filepath.Join(dir, "state.json"))
	for range 3 {
		if err := f.Write(context.Background(), []byte("{}")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [state.json]", names)
	}
	if err := f.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestSQLNamedSnapshotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	a, b := blob.NewSQL(db, "a"), blob.NewSQL(db, "b")
	if err := a.Write(ctx, []byte("A")); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := b.Write(ctx, []byte("B")); err != nil {
		t.Fatalf("write b: %v", err)
	}

	for store, want := range map[*blob.SQL]string{a: "A", b: "B"} {
		got, err := store.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != want {
			t.Errorf("read = %q, want %q", got, want)
		}
	}
	if err := a.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   0,
	})
}

func TestRedisUnreachable(t *testing.T) {
	ctx := context.Background()
	r := blob.NewRedis(deadRedis(), "party:state")

	if _, err := r.Read(ctx); err == nil {
		t.Error("read: expected error from unreachable redis")
	}
	if err := r.Write(ctx, []byte("{}")); err == nil {
		t.Error("write: expected error from unreachable redis")
	}
	if err := r.Ping(ctx); err == nil {
		t.Error("ping: expected error from unreachable redis")
	}
}
