package detailstore

import (
	"strings"
	"testing"
	"time"

	"github.com/brennhill/revagent/internal/errs"
)

func TestSmartHandlePassesThroughSmallPayloads(t *testing.T) {
	s := New()
	defer s.Close()

	small := map[string]any{"ok": true}
	got, err := s.SmartHandle(small, DefaultThreshold)
	if err != nil {
		t.Fatalf("SmartHandle: %v", err)
	}
	if _, isHandle := got.(Handle); isHandle {
		t.Fatal("small payload should pass through verbatim, got a Handle")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for a pass-through payload", s.Len())
	}
}

func TestSmartHandleExternalizesLargePayloads(t *testing.T) {
	s := New()
	defer s.Close()

	big := map[string]any{"blob": strings.Repeat("x", 1024)}
	got, err := s.SmartHandle(big, 100)
	if err != nil {
		t.Fatalf("SmartHandle: %v", err)
	}
	h, ok := got.(Handle)
	if !ok {
		t.Fatalf("got %T, want Handle", got)
	}
	if h.DetailID == "" {
		t.Fatal("expected a non-empty detailId")
	}
	if h.Summary.SizeBytes <= 100 {
		t.Fatalf("Summary.SizeBytes = %d, want > threshold", h.Summary.SizeBytes)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestRetrieveNavigatesDotPath(t *testing.T) {
	s := New()
	defer s.Close()

	payload := map[string]any{
		"meta": map[string]any{"name": "widget"},
		"list": []any{"a", "b", "c"},
	}
	h, err := s.SmartHandle(payload, 0)
	if err != nil {
		t.Fatalf("SmartHandle: %v", err)
	}
	handle := h.(Handle)

	got, err := s.Retrieve(handle.DetailID, "meta.name")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != "widget" {
		t.Fatalf("Retrieve(meta.name) = %v, want widget", got)
	}

	got, err = s.Retrieve(handle.DetailID, "list.1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != "b" {
		t.Fatalf("Retrieve(list.1) = %v, want b", got)
	}
}

func TestRetrieveUnknownIDReturnsNotFound(t *testing.T) {
	s := New()
	defer s.Close()

	_, err := s.Retrieve("det_doesnotexist", "")
	var nf *errs.NotFound
	if !as(err, &nf) {
		t.Fatalf("Retrieve unknown id: got %T %v, want *errs.NotFound", err, err)
	}
}

func TestRetrieveExpiredEntryIsRemovedAndReturnsExpired(t *testing.T) {
	s := New()
	defer s.Close()
	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fakeNow }

	h, _ := s.SmartHandle(map[string]any{"big": strings.Repeat("y", 1024)}, 0)
	handle := h.(Handle)

	fakeNow = fakeNow.Add(maxTTL + time.Minute)
	_, err := s.Retrieve(handle.DetailID, "")
	var exp *errs.Expired
	if !as(err, &exp) {
		t.Fatalf("Retrieve expired: got %T %v, want *errs.Expired", err, err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after expiry = %d, want 0 (entry removed)", s.Len())
	}
}

func TestRetrieveExtendsTTLButCapsAtMaxTTLFromCreation(t *testing.T) {
	s := New()
	defer s.Close()
	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fakeNow }

	h, _ := s.SmartHandle(map[string]any{"big": strings.Repeat("z", 1024)}, 0)
	handle := h.(Handle)
	createdAt := fakeNow

	// Advance to just under expiry so Retrieve extends the TTL.
	fakeNow = fakeNow.Add(defaultTTL - time.Minute)
	if _, err := s.Retrieve(handle.DetailID, ""); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	s.mu.Lock()
	e := s.entries[handle.DetailID]
	expiresAt := e.expiresAt
	s.mu.Unlock()

	if cap := createdAt.Add(maxTTL); expiresAt.After(cap) {
		t.Fatalf("expiresAt %v extended past maxTTL cap %v", expiresAt, cap)
	}
}

func TestEvictsLRUWhenFull(t *testing.T) {
	s := New()
	defer s.Close()

	var firstID string
	for i := 0; i < maxEntries+1; i++ {
		h, err := s.SmartHandle(map[string]any{"i": i, "pad": strings.Repeat("p", 64)}, 0)
		if err != nil {
			t.Fatalf("SmartHandle(%d): %v", i, err)
		}
		if i == 0 {
			firstID = h.(Handle).DetailID
		}
	}
	if s.Len() != maxEntries {
		t.Fatalf("Len() = %d, want %d after eviction", s.Len(), maxEntries)
	}
	if _, err := s.Retrieve(firstID, ""); err == nil {
		t.Fatal("expected the first (oldest) entry to have been evicted")
	}
}

func TestClearFreesAllEntries(t *testing.T) {
	s := New()
	defer s.Close()

	s.SmartHandle(map[string]any{"a": strings.Repeat("a", 128)}, 0)
	s.SmartHandle(map[string]any{"b": strings.Repeat("b", 128)}, 0)

	freed := s.Clear()
	if freed <= 0 {
		t.Fatalf("Clear() freed = %d, want > 0", freed)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", s.Len())
	}
}

// as is a tiny errors.As helper kept local to avoid importing errors just
// for these type assertions across pointer types.
func as(err error, target any) bool {
	switch t := target.(type) {
	case **errs.NotFound:
		v, ok := err.(*errs.NotFound)
		if ok {
			*t = v
		}
		return ok
	case **errs.Expired:
		v, ok := err.(*errs.Expired)
		if ok {
			*t = v
		}
		return ok
	}
	return false
}
