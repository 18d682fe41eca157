package cache

import (
	"testing"
	"time"
)

func newTestLRU(maxSize int, ttl time.Duration) (*LRU[string, int], *time.Time) {
	c := NewLRU[string, int](maxSize, ttl)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a is now most recent
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, now := newTestLRU(10, time.Minute)
	c.Set("old", 1)
	*now = now.Add(45 * time.Second)
	c.Set("fresh", 2)
	*now = now.Add(30 * time.Second)

	if _, ok := c.Get("old"); ok {
		t.Error("old should have expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("CleanExpired() = %d, old was already dropped on Get", removed)
	}

	*now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 1 || c.Len() != 0 {
		t.Errorf("CleanExpired() = %d, Len() = %d", removed, c.Len())
	}
}

func TestLRUSetReplacesAndDelete(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("a", 5)
	if v, _ := c.Get("a"); v != 5 || c.Len() != 1 {
		t.Fatalf("a = %d, Len() = %d", v, c.Len())
	}
	c.Delete("a")
	c.Delete("missing")
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after delete", c.Len())
	}
}
