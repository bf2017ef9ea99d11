// Package detailstore implements the Detail-ID Store (spec §4.C): oversized
// tool responses are replaced with a short-lived opaque handle so the LLM
// can fetch specifics on demand instead of consuming its whole context
// window on one tool call.
package detailstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/errs"
	"github.com/brennhill/revagent/internal/idgen"
)

const (
	// DefaultThreshold is the response size, in serialized bytes, above
	// which smartHandle externalizes the payload.
	DefaultThreshold = 50 * 1024

	defaultTTL = 30 * time.Minute
	maxTTL     = 60 * time.Minute
	extendBy   = 15 * time.Minute
	extendWhenUnder = 5 * time.Minute

	maxEntries = 100

	sweepInterval = 5 * time.Minute

	previewLen = 200
)

type entry struct {
	data           any
	size           int
	createdAt      time.Time
	lastAccessedAt time.Time
	accessCount    int
	expiresAt      time.Time
}

// Store is the process-wide detail-id cache.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string // LRU order, most-recently-used at the back
	newID   idgen.Generator
	now     func() time.Time
	stop    chan struct{}
}

// New creates a Store and starts its background sweeper.
func New() *Store {
	s := &Store{
		entries: make(map[string]*entry),
		newID:   idgen.Prefixed("det_", idgen.NanoID(12)),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweeper.
func (s *Store) Close() { close(s.stop) }

func (s *Store) sweepLoop() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.sweepExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) sweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			s.removeLocked(id)
		}
	}
}

// Handle is what SmartHandle returns in lieu of the verbatim payload.
type Handle struct {
	Summary   Summary `json:"summary"`
	DetailID  string  `json:"detailId"`
	Hint      string  `json:"hint"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Summary describes an externalized payload without reproducing it.
type Summary struct {
	Type        string   `json:"type"`
	SizeBytes   int      `json:"sizeBytes"`
	SizeKB      float64  `json:"sizeKB"`
	Preview     string   `json:"preview"`
	TopLevelKeys []string `json:"topLevelKeys,omitempty"`
	ArrayLength *int     `json:"arrayLength,omitempty"`
}

// SmartHandle returns data verbatim when its serialized size is at most
// threshold; otherwise it stores data and returns a Handle.
func (s *Store) SmartHandle(data any, threshold int) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("detailstore: marshal: %w", err)
	}
	if len(raw) <= threshold {
		return data, nil
	}

	id := s.newID()
	now := s.now()
	e := &entry{
		data:           data,
		size:           len(raw),
		createdAt:      now,
		lastAccessedAt: now,
		expiresAt:      now.Add(defaultTTL),
	}

	s.mu.Lock()
	if len(s.entries) >= maxEntries {
		s.evictLRULocked()
	}
	s.entries[id] = e
	s.order = append(s.order, id)
	s.mu.Unlock()

	return Handle{
		Summary:   summarize(raw, data),
		DetailID:  id,
		Hint:      "call get_detailed_data with this detailId (and an optional dot-separated path) to retrieve specific fields",
		ExpiresAt: e.expiresAt,
	}, nil
}

func summarize(raw []byte, data any) Summary {
	preview := string(raw)
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}

	sum := Summary{
		Type:      fmt.Sprintf("%T", data),
		SizeBytes: len(raw),
		SizeKB:    float64(len(raw)) / 1024.0,
		Preview:   preview,
	}

	switch v := data.(type) {
	case []any:
		n := len(v)
		sum.ArrayLength = &n
		sum.Type = "array"
	case map[string]any:
		sum.Type = "object"
		for k := range v {
			sum.TopLevelKeys = append(sum.TopLevelKeys, k)
		}
	default:
		// Round-trip through map[string]any so struct responses still get
		// a top-level key listing.
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			sum.Type = "object"
			for k := range m {
				sum.TopLevelKeys = append(sum.TopLevelKeys, k)
			}
		} else {
			var arr []any
			if json.Unmarshal(raw, &arr) == nil {
				n := len(arr)
				sum.ArrayLength = &n
				sum.Type = "array"
			}
		}
	}
	return sum
}

// Retrieve returns the data stored under id, optionally narrowed by a
// dot-separated path. Accessing an entry may extend its TTL per §4.C,
// bounded by maxTTL measured from createdAt (the stricter of the two
// bounds discussed in spec.md §9 — resolved in SPEC_FULL.md §5.3).
func (s *Store) Retrieve(id, path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, &errs.NotFound{Kind: "detailId", ID: id, Listing: "get_cache_stats"}
	}

	now := s.now()
	if now.After(e.expiresAt) {
		s.removeLocked(id)
		return nil, &errs.Expired{Kind: "detailId", ID: id}
	}

	e.lastAccessedAt = now
	e.accessCount++
	s.touchLRULocked(id)

	if remaining := e.expiresAt.Sub(now); remaining < extendWhenUnder {
		capAt := e.createdAt.Add(maxTTL)
		extended := now.Add(extendBy)
		if extended.After(capAt) {
			extended = capAt
		}
		if extended.After(e.expiresAt) {
			e.expiresAt = extended
		}
	}

	if path == "" {
		return e.data, nil
	}
	return navigate(e.data, strings.Split(path, "."))
}

func navigate(v any, keys []string) (any, error) {
	cur := v
	for i, k := range keys {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[k]
			if !ok {
				return nil, &errs.NotFound{Kind: "detailPath", ID: strings.Join(keys[:i+1], ".")}
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, &errs.NotFound{Kind: "detailPath", ID: strings.Join(keys[:i+1], ".")}
			}
			cur = node[idx]
		default:
			// Last resort: round-trip through JSON so struct fields are
			// addressable too.
			raw, err := json.Marshal(node)
			if err != nil {
				return nil, &errs.NotFound{Kind: "detailPath", ID: strings.Join(keys[:i+1], ".")}
			}
			var m map[string]any
			if json.Unmarshal(raw, &m) != nil {
				return nil, &errs.NotFound{Kind: "detailPath", ID: strings.Join(keys[:i+1], ".")}
			}
			next, ok := m[k]
			if !ok {
				return nil, &errs.NotFound{Kind: "detailPath", ID: strings.Join(keys[:i+1], ".")}
			}
			cur = next
		}
	}
	return cur, nil
}

// evictLRULocked removes the least-recently-accessed entry. Caller must
// hold s.mu and s.order must be non-empty.
func (s *Store) evictLRULocked() {
	if len(s.order) == 0 {
		return
	}
	victim := s.order[0]
	s.removeLocked(victim)
}

func (s *Store) touchLRULocked(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, id)
}

// removeLocked deletes id from both the map and the LRU order. Caller
// must hold s.mu.
func (s *Store) removeLocked(id string) {
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear empties the store. Implements cachecoord.CacheInstance via
// CacheAdapter below.
func (s *Store) Clear() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var freed int64
	for _, e := range s.entries {
		freed += int64(e.size)
	}
	s.entries = make(map[string]*entry)
	s.order = nil
	return freed
}

// Len reports the number of live entries, for tests and the cache adapter.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CacheAdapter adapts Store to cachecoord.CacheInstance.
type CacheAdapter struct{ *Store }

func (a CacheAdapter) Name() string { return "detailstore" }

func (a CacheAdapter) Stats() cachecoord.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	var bytes int64
	var hits, accesses int64
	for _, e := range a.entries {
		bytes += int64(e.size)
		if e.accessCount > 0 {
			hits++
		}
		accesses++
	}
	return cachecoord.Stats{Name: "detailstore", Entries: len(a.entries), Bytes: bytes, Hits: hits, Misses: accesses - hits}
}

func (a CacheAdapter) Cleanup() int64 {
	before := a.Len()
	a.sweepExpired()
	if before == a.Len() {
		return 0
	}
	// sweepExpired doesn't track freed bytes directly; approximate via a
	// second pass stats diff is unnecessary for the coordinator's
	// short-circuit, a conservative non-zero signal is sufficient.
	return 1
}

func (a CacheAdapter) Clear() int64 { return a.Store.Clear() }
