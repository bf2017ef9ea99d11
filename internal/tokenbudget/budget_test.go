package tokenbudget

import (
	"testing"
	"time"
)

func TestAccountAccumulatesTokens(t *testing.T) {
	b := New(nil)
	snap := b.Account("tool_a", []byte("1234"), []byte("5678"))
	if snap.CurrentUsage != 2 {
		t.Fatalf("CurrentUsage = %d, want 2 (ceil(8/4))", snap.CurrentUsage)
	}
	snap = b.Account("tool_b", []byte("12"), []byte(""))
	if snap.CurrentUsage != 3 {
		t.Fatalf("CurrentUsage = %d, want 3", snap.CurrentUsage)
	}
}

func TestAccountFiresThresholdWarningOnce(t *testing.T) {
	b := New(nil)
	big := make([]byte, MaxTokens*4) // exactly at 100%, well past 80%
	snap := b.Account("tool", big, nil)
	if snap.Warning == "" {
		t.Fatal("expected a threshold warning on first crossing")
	}

	snap2 := b.Account("tool", []byte("x"), nil)
	if snap2.Warning != "" {
		t.Fatalf("threshold warning fired twice: %q", snap2.Warning)
	}
}

func TestAccountTriggersCleanupAtNinetyPercent(t *testing.T) {
	var cleaned bool
	b := New(func() int64 {
		cleaned = true
		return 1024
	})
	big := make([]byte, int(float64(MaxTokens)*0.90*4)+4)
	snap := b.Account("tool", big, nil)
	if !cleaned {
		t.Fatal("expected Cleaner to run at >=90% usage")
	}
	if !snap.CleanupTriggered {
		t.Fatal("expected CleanupTriggered=true")
	}
}

func TestManualCleanupPrunesOldHistory(t *testing.T) {
	b := New(nil)
	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fakeNow }

	b.Account("old", []byte("1234"), nil)
	fakeNow = fakeNow.Add(10 * time.Minute) // past recordRetention (5m)
	b.Account("new", []byte("1234"), nil)

	b.ManualCleanup()

	_, hist := b.Stats()
	if len(hist) != 1 || hist[0].ToolName != "new" {
		t.Fatalf("history after cleanup = %+v, want only the recent record", hist)
	}
}

func TestResetClearsState(t *testing.T) {
	b := New(nil)
	b.Account("tool", make([]byte, MaxTokens*4), nil)
	b.Reset()
	snap, hist := b.Stats()
	if snap.CurrentUsage != 0 || len(hist) != 0 {
		t.Fatalf("state after Reset: usage=%d hist=%d, want 0, 0", snap.CurrentUsage, len(hist))
	}
	// A threshold that was already triggered must be clear again.
	snap2 := b.Account("tool", make([]byte, MaxTokens*4), nil)
	if snap2.Warning == "" {
		t.Fatal("expected a fresh warning after Reset")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(map[string]string{}); got != 1 {
		t.Fatalf("EstimateTokens({}) = %d, want 1 (ceil(2/4)=1)", got)
	}
}
