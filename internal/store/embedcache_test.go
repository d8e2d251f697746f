package store

import (
	"testing"
)

func newTestCache(t *testing.T) *EmbedCache {
	t.Helper()
	cache, err := NewEmbedCache(":memory:")
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestEmbedCache_PutGet(t *testing.T) {
	cache := newTestCache(t)

	embedding := []float32{0.1, 0.2, 0.3}
	if err := cache.Put("some chunk text", "text-embedding-004", embedding); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := cache.Get("some chunk text", "text-embedding-004")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 3 || got[0] != 0.1 || got[2] != 0.3 {
		t.Errorf("unexpected embedding %v", got)
	}
}

func TestEmbedCache_MissOnUnknownContent(t *testing.T) {
	cache := newTestCache(t)

	_, ok, err := cache.Get("never stored", "text-embedding-004")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected a cache miss")
	}
}

func TestEmbedCache_MissOnDifferentModel(t *testing.T) {
	cache := newTestCache(t)

	if err := cache.Put("chunk", "model-a", []float32{1}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	_, ok, err := cache.Get("chunk", "model-b")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("switching models must invalidate the cache")
	}
}

func TestEmbedCache_ReplaceOverwrites(t *testing.T) {
	cache := newTestCache(t)

	if err := cache.Put("chunk", "m", []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put("chunk", "m", []float32{2}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get("chunk", "m")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got[0] != 2 {
		t.Errorf("expected overwritten value, got %v", got)
	}
}
