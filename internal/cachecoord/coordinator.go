// Package cachecoord implements the Unified Cache Coordinator (spec
// §4.D): a registry of cache-like subsystems that reports a global
// aggregate and drives a three-phase smart cleanup on demand
// (the cache_smart_cleanup tool).
package cachecoord

import "sync"

// Stats describes one cache instance's current footprint.
type Stats struct {
	Name    string
	Entries int
	Bytes   int64
	Hits    int64
	Misses  int64
}

// HitRate returns Hits/(Hits+Misses), or 0 when there have been no
// accesses yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheInstance is the adapter every cache-like subsystem registers.
// A subsystem with nothing sensible to do for Cleanup or Clear simply
// returns 0 — the coordinator never special-cases that, it just moves on
// to the next candidate.
type CacheInstance interface {
	Name() string
	Stats() Stats
	// Cleanup drops expired or low-value entries and returns bytes freed.
	Cleanup() int64
	// Clear empties the cache entirely and returns bytes freed.
	Clear() int64
}

// Coordinator is the process-wide cache registry.
type Coordinator struct {
	mu    sync.Mutex
	caches map[string]CacheInstance
	order  []string
}

// New creates an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{caches: make(map[string]CacheInstance)}
}

// Register adds a cache instance. Re-registering the same name replaces
// the prior instance (used in tests that rebuild a subsystem).
func (c *Coordinator) Register(ci CacheInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.caches[ci.Name()]; !exists {
		c.order = append(c.order, ci.Name())
	}
	c.caches[ci.Name()] = ci
}

// GlobalStats aggregates every registered cache's Stats plus a
// process-wide hit rate.
type GlobalStats struct {
	Caches       []Stats
	TotalEntries int
	TotalBytes   int64
	HitRate      float64
}

// Stats computes the current global aggregate.
func (c *Coordinator) Stats() GlobalStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var g GlobalStats
	var hits, misses int64
	for _, name := range c.order {
		s := c.caches[name].Stats()
		g.Caches = append(g.Caches, s)
		g.TotalEntries += s.Entries
		g.TotalBytes += s.Bytes
		hits += s.Hits
		misses += s.Misses
	}
	if total := hits + misses; total > 0 {
		g.HitRate = float64(hits) / float64(total)
	}
	return g
}

// SmartCleanup runs the three-phase cleanup from spec §4.D, stopping as
// soon as targetBytes have been freed. Returns total bytes freed.
//
// Phase 1: call every cache's Cleanup().
// Phase 2: Clear() any cache whose hit rate is below 30% of the global
// average hit rate (skipped when the average is 0 — nothing to compare
// against).
// Phase 3: Clear() the two largest remaining caches by byte size.
func (c *Coordinator) SmartCleanup(targetBytes int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var freed int64

	// Phase 1.
	for _, name := range c.order {
		freed += c.caches[name].Cleanup()
		if freed >= targetBytes {
			return freed
		}
	}

	global := c.globalStatsLocked()
	avgHitRate := global.HitRate

	// Phase 2.
	if avgHitRate > 0 {
		threshold := avgHitRate * 0.3
		for _, name := range c.order {
			ci := c.caches[name]
			if ci.Stats().HitRate() < threshold {
				freed += ci.Clear()
				if freed >= targetBytes {
					return freed
				}
			}
		}
	}

	// Phase 3: two largest by byte size.
	type sized struct {
		name  string
		bytes int64
	}
	var candidates []sized
	for _, name := range c.order {
		candidates = append(candidates, sized{name, c.caches[name].Stats().Bytes})
	}
	for i := 0; i < len(candidates); i++ {
		maxIdx := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].bytes > candidates[maxIdx].bytes {
				maxIdx = j
			}
		}
		candidates[i], candidates[maxIdx] = candidates[maxIdx], candidates[i]
	}
	for i := 0; i < len(candidates) && i < 2; i++ {
		freed += c.caches[candidates[i].name].Clear()
		if freed >= targetBytes {
			return freed
		}
	}

	return freed
}

func (c *Coordinator) globalStatsLocked() GlobalStats {
	var g GlobalStats
	var hits, misses int64
	for _, name := range c.order {
		s := c.caches[name].Stats()
		g.TotalEntries += s.Entries
		g.TotalBytes += s.Bytes
		hits += s.Hits
		misses += s.Misses
	}
	if total := hits + misses; total > 0 {
		g.HitRate = float64(hits) / float64(total)
	}
	return g
}
