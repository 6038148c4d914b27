package tokenstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/fraudguard/internal/config"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	if err := store.Set(ctx, "T1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "T2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "T2" {
		t.Fatalf("expected T2, got %q", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clearing an empty slot should succeed: %v", err)
	}
	if err := store.Set(ctx, ""); err == nil {
		t.Fatal("expected error when storing an empty token")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "session.db"), "default")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	store, err := OpenBolt(path, "default")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenBolt(path, "default")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got != "persisted" {
		t.Fatalf("expected persisted token, got %q", got)
	}
}

func TestBoltStoreScopesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	store, err := OpenBolt(path, "alice")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "alice-token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	store.Close()

	other, err := OpenBolt(path, "bob")
	if err != nil {
		t.Fatalf("open other scope: %v", err)
	}
	defer other.Close()
	if _, err := other.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected empty slot for other scope, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client, "default")
	exerciseStore(t, store)

	if err := store.Set(context.Background(), "T3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("fraudguard:session:default:token"); got != "T3" {
		t.Fatalf("expected scoped key to hold T3, got %q", got)
	}
}

func TestOpenMemoryAndFile(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := Open(ctx, config.Config{TokenStore: config.StoreMemory, TokenScope: "default"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	exerciseStore(t, store)
	if err := closeFn(); err != nil {
		t.Fatalf("close memory: %v", err)
	}

	store, closeFn, err = Open(ctx, config.Config{
		TokenStore:     config.StoreFile,
		TokenStorePath: filepath.Join(t.TempDir(), "session.db"),
		TokenScope:     "default",
	})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	exerciseStore(t, store)
	if err := closeFn(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, closeFn, err := Open(context.Background(), config.Config{
		TokenStore: config.StoreRedis,
		RedisURL:   "redis://" + mr.Addr(),
		TokenScope: "default",
	})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer closeFn()
	exerciseStore(t, store)
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), config.Config{TokenStore: "cookie"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
