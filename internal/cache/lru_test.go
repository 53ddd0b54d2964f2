package cache

import (
	"testing"
	"time"
)

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](maxSize, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// b is now the least recently used entry
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	c.Set("a", "updated")
	if v, _ := c.Get("a"); v != "updated" {
		t.Errorf("Get(a) = %q after overwrite", v)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, now := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	*now = now.Add(2 * time.Minute)
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be deleted")
	}

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() = %d after Purge", c.Size())
	}
	c.Set("d", "4")
	if v, ok := c.Get("d"); !ok || v != "4" {
		t.Error("cache unusable after Purge")
	}
}

func TestManager_Sweep(t *testing.T) {
	c, now := newTestCache(10, time.Second)
	c.Set("a", "1")

	m := NewManager(nil)
	m.Register("test", c)
	if n := m.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d before expiry", n)
	}

	*now = now.Add(time.Hour)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
