package cache

import (
	"testing"
	"time"
)

var base = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestRoundTrip(t *testing.T) {
	c := New(24 * time.Hour)

	c.Put("1.2.3.4", "What is her degree?", "A PhD in marketing.", base)

	got, ok := c.Get("1.2.3.4", "What is her degree?", base.Add(time.Hour))
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != "A PhD in marketing." {
		t.Errorf("answer = %q", got)
	}
}

func TestNormalization(t *testing.T) {
	c := New(24 * time.Hour)

	c.Put("1.2.3.4", "What is her degree?", "answer", base)

	variants := []string{
		"what is her degree?",
		"  What is her degree?  ",
		"WHAT IS HER DEGREE?",
	}
	for _, q := range variants {
		if _, ok := c.Get("1.2.3.4", q, base); !ok {
			t.Errorf("variant %q should hit", q)
		}
	}
}

func TestIdentityUsedVerbatim(t *testing.T) {
	c := New(24 * time.Hour)

	c.Put("1.2.3.4", "question", "answer", base)
	if _, ok := c.Get("5.6.7.8", "question", base); ok {
		t.Error("another identity must not share cached answers")
	}
}

func TestExpiry(t *testing.T) {
	c := New(24 * time.Hour)

	c.Put("1.2.3.4", "question", "answer", base)

	if _, ok := c.Get("1.2.3.4", "question", base.Add(24*time.Hour-time.Second)); !ok {
		t.Error("entry just under TTL should be fresh")
	}
	if _, ok := c.Get("1.2.3.4", "question", base.Add(24*time.Hour)); ok {
		t.Error("entry at TTL should be stale")
	}
}

func TestStaleEntryStaysUntilSwept(t *testing.T) {
	c := New(time.Hour)

	c.Put("1.2.3.4", "question", "answer", base)
	c.Get("1.2.3.4", "question", base.Add(2*time.Hour))

	if c.Len() != 1 {
		t.Errorf("stale read should not delete; len = %d", c.Len())
	}
	if removed := c.Sweep(base.Add(2 * time.Hour)); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Errorf("len after sweep = %d", c.Len())
	}
}

func TestPutOverwrites(t *testing.T) {
	c := New(time.Hour)

	c.Put("1.2.3.4", "question", "old", base)
	c.Put("1.2.3.4", "Question", "new", base.Add(2*time.Hour))

	got, ok := c.Get("1.2.3.4", "question", base.Add(2*time.Hour))
	if !ok || got != "new" {
		t.Errorf("got %q, %v; want refreshed entry", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1 (same normalized key)", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := New(time.Hour)

	c.Put("1.2.3.4", "question", "answer", base)
	c.Get("1.2.3.4", "question", base)
	c.Get("1.2.3.4", "other", base)

	stats := c.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
