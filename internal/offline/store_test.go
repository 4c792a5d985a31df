package offline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.json")
	store := NewFileStore(path)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty queue for missing file, got %v %v", empty, err)
	}

	want := []QueuedRequest{
		{ID: "1-1", Endpoint: "/api/chat", Method: "POST", Body: []byte(`{"message":"hi"}`), Timestamp: 1},
		{ID: "1-2", Endpoint: "/api/weather-advisory", Method: "POST", Timestamp: 1, Attempts: 2, LastError: "offline"},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected round trip (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the queue file after save, got %d entries", len(entries))
	}
}

func TestFileStoreReportsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	if err := os.WriteFile(path, []byte("[{"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
}

type fakeRedis struct {
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStoreUsesSingleKey(t *testing.T) {
	rdb := &fakeRedis{values: map[string]string{}}
	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty queue for missing key, got %v %v", empty, err)
	}

	queue := NewQueue(store, &scriptedSender{})
	if _, err := queue.Enqueue(ctx, "/api/chat", "POST", map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if _, ok := rdb.values[DefaultStorageKey]; !ok {
		t.Fatalf("expected queue stored under %q, got keys %v", DefaultStorageKey, rdb.values)
	}

	if err := queue.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if len(rdb.values) != 0 {
		t.Fatalf("expected key removed on clear, got %v", rdb.values)
	}
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	store := NewRedisStore(&fakeRedis{values: map[string]string{}, err: errors.New("connection refused")}, "q")
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if err := store.Save(context.Background(), []QueuedRequest{{ID: "1"}}); err == nil {
		t.Fatalf("expected save error")
	}
}
