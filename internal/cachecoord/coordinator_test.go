package cachecoord_test

import (
	"testing"

	"github.com/brennhill/revagent/internal/cachecoord"
)

// fakeCache is a hand-written CacheInstance double: cleanup and clear are
// scripted per-test rather than driven by real eviction logic.
type fakeCache struct {
	name       string
	entries    int
	bytes      int64
	hits       int64
	misses     int64
	cleanupVal int64
	cleared    bool
}

func (f *fakeCache) Name() string { return f.name }
func (f *fakeCache) Stats() cachecoord.Stats {
	return cachecoord.Stats{Name: f.name, Entries: f.entries, Bytes: f.bytes, Hits: f.hits, Misses: f.misses}
}
func (f *fakeCache) Cleanup() int64 { return f.cleanupVal }
func (f *fakeCache) Clear() int64 {
	f.cleared = true
	freed := f.bytes
	f.bytes = 0
	f.entries = 0
	return freed
}

func TestStatsAggregatesAcrossCaches(t *testing.T) {
	c := cachecoord.New()
	c.Register(&fakeCache{name: "a", entries: 3, bytes: 100, hits: 9, misses: 1})
	c.Register(&fakeCache{name: "b", entries: 2, bytes: 50, hits: 1, misses: 9})

	got := c.Stats()
	if got.TotalEntries != 5 {
		t.Fatalf("TotalEntries = %d, want 5", got.TotalEntries)
	}
	if got.TotalBytes != 150 {
		t.Fatalf("TotalBytes = %d, want 150", got.TotalBytes)
	}
	if got.HitRate != 0.5 {
		t.Fatalf("HitRate = %v, want 0.5 (10 hits / 20 total)", got.HitRate)
	}
	if len(got.Caches) != 2 {
		t.Fatalf("len(Caches) = %d, want 2", len(got.Caches))
	}
}

func TestRegisterReplacesSameName(t *testing.T) {
	c := cachecoord.New()
	c.Register(&fakeCache{name: "a", bytes: 100})
	c.Register(&fakeCache{name: "a", bytes: 999})

	got := c.Stats()
	if len(got.Caches) != 1 {
		t.Fatalf("len(Caches) = %d, want 1 (re-register replaces, doesn't duplicate)", len(got.Caches))
	}
	if got.TotalBytes != 999 {
		t.Fatalf("TotalBytes = %d, want 999 (latest registration wins)", got.TotalBytes)
	}
}

func TestSmartCleanupStopsAfterPhaseOneIfEnough(t *testing.T) {
	c := cachecoord.New()
	a := &fakeCache{name: "a", bytes: 500, cleanupVal: 1000}
	b := &fakeCache{name: "b", bytes: 500}
	c.Register(a)
	c.Register(b)

	freed := c.SmartCleanup(1000)
	if freed != 1000 {
		t.Fatalf("freed = %d, want 1000", freed)
	}
	if a.cleared || b.cleared {
		t.Fatal("phase 1 alone satisfied targetBytes; no cache should have been Clear()ed")
	}
}

func TestSmartCleanupPhaseTwoClearsLowHitRateCaches(t *testing.T) {
	c := cachecoord.New()
	// Global hit rate: (90+0) / (100+100) = 0.45. 30% of that = 0.135.
	// "cold" has hit rate 0, well under threshold, and should be cleared.
	hot := &fakeCache{name: "hot", bytes: 10, hits: 90, misses: 10}
	cold := &fakeCache{name: "cold", bytes: 200, hits: 0, misses: 100}
	c.Register(hot)
	c.Register(cold)

	freed := c.SmartCleanup(9999)
	if !cold.cleared {
		t.Fatal("expected the low-hit-rate cache to be cleared in phase 2")
	}
	if freed < 200 {
		t.Fatalf("freed = %d, want at least the 200 bytes phase 2 cleared", freed)
	}
}

func TestSmartCleanupPhaseThreeClearsTwoLargestWhenNoHitRateSignal(t *testing.T) {
	c := cachecoord.New()
	// No hits/misses anywhere => avgHitRate is 0 => phase 2 is skipped
	// entirely, falling through to phase 3's size-based clear.
	small := &fakeCache{name: "small", bytes: 10}
	mid := &fakeCache{name: "mid", bytes: 50}
	big := &fakeCache{name: "big", bytes: 100}
	c.Register(small)
	c.Register(mid)
	c.Register(big)

	c.SmartCleanup(9999)

	if small.cleared {
		t.Fatal("smallest cache should not be cleared by phase 3 (only top two)")
	}
	if !mid.cleared || !big.cleared {
		t.Fatal("expected the two largest caches to be cleared in phase 3")
	}
}

func TestSmartCleanupReturnsZeroWhenNothingToFree(t *testing.T) {
	c := cachecoord.New()
	freed := c.SmartCleanup(100)
	if freed != 0 {
		t.Fatalf("freed = %d, want 0 for an empty coordinator", freed)
	}
}
