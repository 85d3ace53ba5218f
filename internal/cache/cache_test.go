package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(1 << 20)
	defer mc.Close()

	body := []byte("<html>page body</html>")
	if err := mc.Set("https://example.com/list", body, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := mc.Get("https://example.com/list")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != string(body) {
		t.Errorf("Body mismatch: got %q, want %q", got, body)
	}

	if _, ok := mc.Get("https://example.com/other"); ok {
		t.Error("Expected cache miss for unknown key")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(1 << 20)
	defer mc.Close()

	mc.Set("key", []byte("body"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := mc.Get("key"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	// Room for roughly two entries (256 bytes overhead each)
	mc := NewMemoryCache(700)
	defer mc.Close()

	mc.Set("a", []byte("aaaa"), time.Minute)
	mc.Set("b", []byte("bbbb"), time.Minute)

	// Touch "a" so "b" is the eviction candidate
	mc.Get("a")

	mc.Set("c", []byte("cccc"), time.Minute)

	if _, ok := mc.Get("a"); !ok {
		t.Error("Recently used entry should survive eviction")
	}
	if _, ok := mc.Get("b"); ok {
		t.Error("Least recently used entry should be evicted")
	}
	if _, ok := mc.Get("c"); !ok {
		t.Error("New entry should be present")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	mc := NewMemoryCache(1 << 20)
	defer mc.Close()

	mc.Set("a", []byte("aaaa"), time.Minute)
	mc.Set("b", []byte("bbbb"), time.Minute)

	if err := mc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok := mc.Get("a"); ok {
		t.Error("Expected miss after Clear")
	}
	if got := mc.Stats()["entries"].(int); got != 0 {
		t.Errorf("Entry count after Clear: got %d, want 0", got)
	}
}
