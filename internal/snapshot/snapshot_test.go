package snapshot

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/naturalys/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memoryBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: map[string][]byte{}}
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.entries, key)
	return nil
}

func sampleSnapshot() Snapshot {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return Snapshot{
		Products: []db.Product{
			{ID: "p1", Name: "Granola", Price: "R$ 19,90", OrderIndex: 0, CreatedAt: created, UpdatedAt: created},
		},
		MainButtons: []db.MainButton{
			{ID: "b1", Icon: "🔗", Name: "Cardápio", Link: "https://example.com", Status: db.ButtonStatusHighlight, CreatedAt: created, UpdatedAt: created},
		},
		Settings: &db.StoreSettings{ID: "s1", StoreName: "Naturalys", CreatedAt: created, UpdatedAt: created},
	}
}

func TestCacheRoundTripWithinTTL(t *testing.T) {
	backend := newMemoryBackend()
	cache := New(backend, time.Minute, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if got := cache.Load(context.Background()); got != nil {
		t.Fatalf("expected miss on empty cache, got %+v", got)
	}

	want := sampleSnapshot()
	if err := cache.Save(context.Background(), want); err != nil {
		t.Fatalf("save: %v", err)
	}
	want.Timestamp = now.UnixMilli()

	now = now.Add(30 * time.Second)
	got := cache.Load(context.Background())
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheExpiredEntryIsRemoved(t *testing.T) {
	backend := newMemoryBackend()
	cache := New(backend, time.Minute, nil)
	now := time.Now()
	cache.now = func() time.Time { return now }

	if err := cache.Save(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(61 * time.Second)
	if got := cache.Load(context.Background()); got != nil {
		t.Fatalf("expected expired snapshot to be ignored")
	}
	if _, ok := backend.entries[Key]; ok {
		t.Fatalf("expired entry should be deleted")
	}
}

func TestCacheCorruptEntryIsRemoved(t *testing.T) {
	backend := newMemoryBackend()
	backend.entries[Key] = []byte("{not json")
	cache := New(backend, 0, nil)

	if cache.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", cache.TTL())
	}
	if got := cache.Load(context.Background()); got != nil {
		t.Fatalf("expected nil for corrupt entry")
	}
	if backend.deletes != 1 {
		t.Fatalf("expected corrupt entry to be deleted once, got %d", backend.deletes)
	}
}

func TestGormBackendUpsert(t *testing.T) {
	dsn := fmt.Sprintf("file:snapshot-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := gdb.AutoMigrate(&db.CacheEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx := context.Background()
	backend := NewGormBackend(gdb)
	if _, ok, err := backend.Get(ctx, Key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := backend.Set(ctx, Key, []byte("one"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Set(ctx, Key, []byte("two"), time.Minute); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := backend.Get(ctx, Key)
	if err != nil || !ok || string(value) != "two" {
		t.Fatalf("expected last write to win, got %q ok=%v err=%v", value, ok, err)
	}

	var count int64
	gdb.Model(&db.CacheEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}

	if err := backend.Delete(ctx, Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, Key); ok {
		t.Fatalf("expected entry to be gone")
	}
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("NATURALYS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NATURALYS_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	backend, err := NewRedisBackend(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("dial redis: %v", err)
	}
	defer backend.Close()

	cache := New(backend, time.Minute, nil)
	defer cache.Clear(ctx)

	if err := cache.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := cache.Load(ctx)
	if got == nil || len(got.Products) != 1 {
		t.Fatalf("expected snapshot from redis, got %+v", got)
	}
}
