package debugger

import (
	"sync"

	"github.com/brennhill/revagent/internal/cdp"
)

// WatchExpression is one entry in the WatchExpressionManager's ordered
// list (spec §4.I).
type WatchExpression struct {
	Name       string
	Expression string
}

// WatchResult is one expression's evaluation outcome.
type WatchResult struct {
	Name       string
	Expression string
	Value      any
	Error      string
}

// WatchManager holds an ordered list of named watch expressions and
// evaluates them either against the paused call frame or the page
// global, constructed with the Debugger Core's shared session (Design
// Note "cyclic ownership ... resolved by passing the session object by
// value" — subordinates never call back into the core's mutex-guarded
// state except via its already-public, paused-aware methods).
type WatchManager struct {
	mu      sync.Mutex
	list    []WatchExpression
	core    *Core
	session *cdp.Session
}

func newWatchManager(core *Core) *WatchManager {
	return &WatchManager{core: core}
}

func (w *WatchManager) attach(session *cdp.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = session
}

// Add appends a watch expression.
func (w *WatchManager) Add(name, expression string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, WatchExpression{Name: name, Expression: expression})
}

// Remove deletes the watch expression named name, if present.
func (w *WatchManager) Remove(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.list {
		if e.Name == name {
			w.list = append(w.list[:i], w.list[i+1:]...)
			return true
		}
	}
	return false
}

// List returns every registered watch expression.
func (w *WatchManager) List() []WatchExpression {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WatchExpression, len(w.list))
	copy(out, w.list)
	return out
}

// EvaluateAll evaluates every watch expression via the paused call frame
// when one exists, else the global Runtime.evaluate context. Per-entry
// errors are captured, not propagated.
func (w *WatchManager) EvaluateAll() []WatchResult {
	w.mu.Lock()
	entries := make([]WatchExpression, len(w.list))
	copy(entries, w.list)
	w.mu.Unlock()

	out := make([]WatchResult, 0, len(entries))
	ps := w.core.Paused()

	for _, e := range entries {
		res := WatchResult{Name: e.Name, Expression: e.Expression}
		var (
			val any
			err error
		)
		if ps != nil && len(ps.CallFrames) > 0 {
			val, err = w.core.EvaluateOnCallFrame(ps.CallFrames[0].CallFrameID, e.Expression)
		} else {
			val, err = w.globalEvaluate(e.Expression)
		}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Value = val
		}
		out = append(out, res)
	}
	return out
}

func (w *WatchManager) globalEvaluate(expression string) (any, error) {
	w.mu.Lock()
	session := w.session
	w.mu.Unlock()
	if session == nil {
		return nil, nil
	}
	// Uses the same Runtime.evaluate shape as the Console Monitor's
	// Execute, but against the Debugger's own session since the
	// Console Monitor may not be enabled.
	return globalRuntimeEvaluate(session, expression)
}
