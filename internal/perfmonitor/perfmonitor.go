// Package perfmonitor wraps the CDP Profiler and HeapProfiler domains
// named in spec §6's "CDP surface consumed" list: CPU sampling profiles,
// precise code coverage, and heap snapshots. It owns its own cdp.Session,
// separate from the Debugger Core's shared session, matching the same
// per-subsystem domain isolation as Network Recorder and Console Monitor
// (spec §5).
package perfmonitor

import (
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// Monitor is the process's CPU/heap profiling subsystem.
type Monitor struct {
	mu              sync.Mutex
	session         *cdp.Session
	profiling       bool
	coverageRunning bool
}

// New creates an empty, disabled Monitor.
func New() *Monitor { return &Monitor{} }

func (m *Monitor) requireSession() (*cdp.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, &errs.PreconditionFailed{Condition: "performance monitor not enabled", Hint: "call performance_enable first"}
	}
	return m.session, nil
}

// Enable enables the Profiler and HeapProfiler CDP domains on session.
// Idempotent.
func (m *Monitor) Enable(session *cdp.Session) error {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return nil
	}
	m.session = session
	m.mu.Unlock()

	page := session.Page()
	if err := (proto.ProfilerEnable{}).Call(page); err != nil {
		return &errs.RemoteFailure{Command: "Profiler.enable", Cause: err}
	}
	if err := (proto.HeapProfilerEnable{}).Call(page); err != nil {
		return &errs.RemoteFailure{Command: "HeapProfiler.enable", Cause: err}
	}
	return nil
}

// Disable disables both domains and releases the session. Idempotent.
func (m *Monitor) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	_ = (proto.ProfilerDisable{}).Call(m.session.Page())
	_ = (proto.HeapProfilerDisable{}).Call(m.session.Page())
	m.session.Close()
	m.session = nil
	m.profiling = false
	m.coverageRunning = false
	return nil
}

// StartProfiling begins CPU sampling via Profiler.start.
func (m *Monitor) StartProfiling() error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := (proto.ProfilerStart{}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Profiler.start", Cause: err}
	}
	m.mu.Lock()
	m.profiling = true
	m.mu.Unlock()
	return nil
}

// ProfileNode is one node of a flattened view of Profiler.stop's result, good enough for
// an LLM to reason about hot functions without walking the raw node tree.
type ProfileNode struct {
	FunctionName string
	URL          string
	LineNumber   int
	HitCount     int
}

// StopProfiling ends CPU sampling and returns the flattened profile.
func (m *Monitor) StopProfiling() ([]ProfileNode, error) {
	session, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	res, err := (proto.ProfilerStop{}).Call(session.Page())
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Profiler.stop", Cause: err}
	}
	m.mu.Lock()
	m.profiling = false
	m.mu.Unlock()

	out := make([]ProfileNode, 0, len(res.Profile.Nodes))
	for _, n := range res.Profile.Nodes {
		node := ProfileNode{HitCount: n.HitCount}
		if n.CallFrame != nil {
			node.FunctionName = n.CallFrame.FunctionName
			node.URL = n.CallFrame.URL
			node.LineNumber = int(n.CallFrame.LineNumber)
		}
		out = append(out, node)
	}
	return out, nil
}

// StartCoverage begins precise per-function code coverage tracking.
func (m *Monitor) StartCoverage() error {
	session, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := (proto.ProfilerStartPreciseCoverage{CallCount: true, Detailed: true}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Profiler.startPreciseCoverage", Cause: err}
	}
	m.mu.Lock()
	m.coverageRunning = true
	m.mu.Unlock()
	return nil
}

// CoverageRange is one executed/unexecuted source range from a coverage
// snapshot.
type CoverageRange struct {
	ScriptID  string
	URL       string
	StartChar int
	EndChar   int
	Count     int
}

// TakeCoverage snapshots accumulated coverage without stopping tracking.
func (m *Monitor) TakeCoverage() ([]CoverageRange, error) {
	session, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	res, err := (proto.ProfilerTakePreciseCoverage{}).Call(session.Page())
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Profiler.takePreciseCoverage", Cause: err}
	}
	return flattenCoverage(res.Result), nil
}

// StopCoverage stops tracking and returns the final coverage snapshot.
func (m *Monitor) StopCoverage() ([]CoverageRange, error) {
	ranges, err := m.TakeCoverage()
	if err != nil {
		return nil, err
	}
	session, _ := m.requireSession()
	if err := (proto.ProfilerStopPreciseCoverage{}).Call(session.Page()); err != nil {
		return nil, &errs.RemoteFailure{Command: "Profiler.stopPreciseCoverage", Cause: err}
	}
	m.mu.Lock()
	m.coverageRunning = false
	m.mu.Unlock()
	return ranges, nil
}

func flattenCoverage(scripts []*proto.ProfilerScriptCoverage) []CoverageRange {
	var out []CoverageRange
	for _, s := range scripts {
		for _, fn := range s.Functions {
			for _, r := range fn.Ranges {
				out = append(out, CoverageRange{
					ScriptID:  string(s.ScriptID),
					URL:       s.URL,
					StartChar: r.StartOffset,
					EndChar:   r.EndOffset,
					Count:     r.Count,
				})
			}
		}
	}
	return out
}

// HeapSnapshot is the concatenated chunk stream from
// HeapProfiler.takeHeapSnapshot, exposed as a single opaque JSON
// string — callers route this through the Detail-ID store rather than
// this package re-parsing the (large, V8-internal) snapshot format.
func (m *Monitor) TakeHeapSnapshot() (string, error) {
	session, err := m.requireSession()
	if err != nil {
		return "", err
	}

	var chunksMu sync.Mutex
	var chunks []string
	stop := session.Page().Context(session.Context()).EachEvent(func(e *proto.HeapProfilerAddHeapSnapshotChunk) (stopNow bool) {
		chunksMu.Lock()
		chunks = append(chunks, e.Chunk)
		chunksMu.Unlock()
		return false
	})
	go stop()

	if err := (proto.HeapProfilerTakeHeapSnapshot{}).Call(session.Page()); err != nil {
		return "", &errs.RemoteFailure{Command: "HeapProfiler.takeHeapSnapshot", Cause: err}
	}

	chunksMu.Lock()
	defer chunksMu.Unlock()
	return strings.Join(chunks, ""), nil
}

// Enabled reports whether performance_enable has run.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}
