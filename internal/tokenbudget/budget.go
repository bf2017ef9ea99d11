// Package tokenbudget implements the Token Budget layer (spec §4.B): a
// process-wide accounting service that estimates context-window pressure
// from request/response byte sizes and proactively relieves it.
package tokenbudget

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MaxTokens is the conservative context budget the server accounts
// against.
const MaxTokens = 200_000

// thresholds are fractions of MaxTokens that fire a one-time warning.
var thresholds = []float64{0.80, 0.90, 0.95}

// cleanupThreshold is the fraction of MaxTokens at or above which
// Account triggers automatic cleanup.
const cleanupThreshold = 0.90

// recordRetention is how long ToolCallRecords are kept for attribution.
const recordRetention = 5 * time.Minute

// Record is one accounted tool call.
type Record struct {
	ToolName         string
	Timestamp        time.Time
	RequestBytes     int
	ResponseBytes    int
	EstimatedTokens  int
	CumulativeTokens int
}

// Cleaner is invoked when usage crosses cleanupThreshold. In production
// this clears the Detail-ID store (spec §4.B step 1); injected so
// tokenbudget has no import-time dependency on detailstore.
type Cleaner func() (bytesFreed int64)

// Budget is the process-wide singleton, constructed once in main and
// injected into the dispatch middleware — never a package-level global,
// per Design Note §9 ("keep them as explicit process-scoped services").
type Budget struct {
	mu                  sync.Mutex
	currentUsage        int
	history             []Record
	triggeredThresholds map[float64]bool
	onCleanup           Cleaner
	now                 func() time.Time // injectable clock, tests only
}

// New creates a Budget. onCleanup may be nil (tests that don't exercise
// the detail-id interaction).
func New(onCleanup Cleaner) *Budget {
	return &Budget{
		triggeredThresholds: make(map[float64]bool),
		onCleanup:           onCleanup,
		now:                 time.Now,
	}
}

// Snapshot is the observable state returned to callers.
type Snapshot struct {
	CurrentUsage    int
	MaxTokens       int
	Ratio           float64
	Warning         string // non-empty exactly when a new threshold was crossed this call
	CleanupTriggered bool
}

// Account computes tokens = ceil((|req|+|resp|)/4), appends a Record,
// updates currentUsage, and fires threshold warnings/cleanup per §4.B.
func (b *Budget) Account(toolName string, reqJSON, respJSON []byte) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	tokens := int(math.Ceil(float64(len(reqJSON)+len(respJSON)) / 4.0))
	b.currentUsage += tokens

	rec := Record{
		ToolName:         toolName,
		Timestamp:        b.now(),
		RequestBytes:     len(reqJSON),
		ResponseBytes:    len(respJSON),
		EstimatedTokens:  tokens,
		CumulativeTokens: b.currentUsage,
	}
	b.history = append(b.history, rec)

	ratio := float64(b.currentUsage) / float64(MaxTokens)
	snap := Snapshot{CurrentUsage: b.currentUsage, MaxTokens: MaxTokens, Ratio: ratio}

	// Fire exactly-once warnings for newly crossed thresholds, highest first
	// so Warning reflects the most severe crossing this call.
	for i := len(thresholds) - 1; i >= 0; i-- {
		t := thresholds[i]
		if ratio >= t && !b.triggeredThresholds[t] {
			b.triggeredThresholds[t] = true
			if snap.Warning == "" {
				snap.Warning = warningText(t, ratio)
			}
		}
	}

	if ratio >= cleanupThreshold {
		b.runCleanupLocked()
		snap.CleanupTriggered = true
		// Recompute ratio after cleanup for the returned snapshot.
		ratio = float64(b.currentUsage) / float64(MaxTokens)
		snap.CurrentUsage = b.currentUsage
		snap.Ratio = ratio
	}

	return snap
}

func warningText(threshold, ratio float64) string {
	return "token budget at " + percent(ratio) + "% of max (" + percent(threshold) + "% threshold crossed)"
}

func percent(f float64) string {
	return strconv.Itoa(int(math.Round(f * 100)))
}

// runCleanupLocked performs the §4.B auto-cleanup sequence. Caller must
// hold b.mu.
func (b *Budget) runCleanupLocked() {
	if b.onCleanup != nil {
		b.onCleanup()
	}

	cutoff := b.now().Add(-recordRetention)
	kept := b.history[:0:0]
	for _, r := range b.history {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	b.history = kept

	total := 0
	for _, r := range b.history {
		total += r.EstimatedTokens
	}
	b.currentUsage = total

	ratio := float64(b.currentUsage) / float64(MaxTokens)
	for t := range b.triggeredThresholds {
		if t > ratio {
			delete(b.triggeredThresholds, t)
		}
	}
}

// Stats returns the current usage snapshot plus recent history, newest
// first, for the get_stats tool.
func (b *Budget) Stats() (Snapshot, []Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hist := make([]Record, len(b.history))
	copy(hist, b.history)
	sort.Slice(hist, func(i, j int) bool { return hist[i].Timestamp.After(hist[j].Timestamp) })

	return Snapshot{
		CurrentUsage: b.currentUsage,
		MaxTokens:    MaxTokens,
		Ratio:        float64(b.currentUsage) / float64(MaxTokens),
	}, hist
}

// ManualCleanup runs the same cleanup sequence as an automatic 90%
// trigger, regardless of current usage. Used by the manual_cleanup tool.
func (b *Budget) ManualCleanup() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runCleanupLocked()
	return Snapshot{
		CurrentUsage: b.currentUsage,
		MaxTokens:    MaxTokens,
		Ratio:        float64(b.currentUsage) / float64(MaxTokens),
	}
}

// Reset clears all accounting state. This is the only way to clear
// triggeredThresholds outside of a ratio-decrease — independent from
// every clear_* cache tool, per the resolved Open Question in SPEC_FULL.md.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentUsage = 0
	b.history = nil
	b.triggeredThresholds = make(map[float64]bool)
}

// EstimateTokens is a standalone helper for callers (e.g. the Detail-ID
// Store) that need the same byte->token conversion without going through
// Account.
func EstimateTokens(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int(math.Ceil(float64(len(data)) / 4.0))
}
