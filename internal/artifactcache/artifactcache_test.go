package artifactcache_test

import (
	"testing"

	"github.com/brennhill/revagent/internal/artifactcache"
	"github.com/brennhill/revagent/internal/dbopen"
)

func openStore(t *testing.T) *artifactcache.Store {
	t.Helper()
	db, err := dbopen.Open(":memory:")
	if err != nil {
		t.Fatalf("dbopen.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := artifactcache.Open(db)
	if err != nil {
		t.Fatalf("artifactcache.Open: %v", err)
	}
	return s
}

func TestGetMissingKeyReturnsNotOK(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get("no-such-script")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a key that was never Put")
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s := openStore(t)

	if err := s.Put("script-1", []byte("function f(){}"), 1000); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get("script-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true after Put")
	}
	if string(got) != "function f(){}" {
		t.Fatalf("Get = %q, want the stored source", got)
	}
}

func TestPutUpsertsExistingKey(t *testing.T) {
	s := openStore(t)

	if err := s.Put("script-1", []byte("v1"), 1000); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := s.Put("script-1", []byte("v2"), 2000); err != nil {
		t.Fatalf("Put v2: %v", err)
	}

	got, _, err := s.Get("script-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("Get = %q, want v2 (overwritten)", got)
	}
}

func TestCacheAdapterStatsReflectsEntries(t *testing.T) {
	s := openStore(t)
	s.Put("a", []byte("1234"), 1)
	s.Put("b", []byte("56789"), 1)

	adapter := artifactcache.CacheAdapter{Store: s}
	stats := adapter.Stats()
	if stats.Name != "artifactcache" {
		t.Fatalf("Name = %q, want artifactcache", stats.Name)
	}
	if stats.Entries != 2 {
		t.Fatalf("Entries = %d, want 2", stats.Entries)
	}
	if stats.Bytes != 9 {
		t.Fatalf("Bytes = %d, want 9 (4+5)", stats.Bytes)
	}
}

func TestCacheAdapterClearRemovesAllEntriesAndReportsBytesFreed(t *testing.T) {
	s := openStore(t)
	s.Put("a", []byte("1234"), 1)

	adapter := artifactcache.CacheAdapter{Store: s}
	freed := adapter.Clear()
	if freed != 4 {
		t.Fatalf("Clear() freed = %d, want 4", freed)
	}

	_, ok, _ := s.Get("a")
	if ok {
		t.Fatal("expected entry to be gone after Clear")
	}
	if got := adapter.Stats(); got.Entries != 0 {
		t.Fatalf("Entries after Clear = %d, want 0", got.Entries)
	}
}
