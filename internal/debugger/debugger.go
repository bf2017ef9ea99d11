// Package debugger implements the Debugger Core (spec §4.I): the
// breakpoint registry, pause-state machine, step operations,
// evaluate-on-callframe, scope-variable expansion, and the breakpoint-hit
// event bus. It owns the page's shared cdp.Session — the one subordinate
// managers (watch, xhrbreakpoint, eventbreakpoint, blackbox) receive by
// value at construction, per Design Note "cyclic ownership ... resolved
// by passing the session object by value" — so every Debugger.* and
// DOMDebugger.* call in the process rides one CDP session.
package debugger

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
	"github.com/brennhill/revagent/internal/idgen"
)

// State is the core's state machine position (spec §4.I).
type State int

const (
	Disabled State = iota
	Enabled
	Paused
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// PauseOnExceptionsMode mirrors proto.DebuggerSetPauseOnExceptionsState's
// closed vocabulary.
type PauseOnExceptionsMode string

const (
	PauseNone     PauseOnExceptionsMode = "none"
	PauseUncaught PauseOnExceptionsMode = "uncaught"
	PauseAll      PauseOnExceptionsMode = "all"
)

// Location identifies a breakpoint target: either ScriptID or URL must be
// set.
type Location struct {
	ScriptID     string
	URL          string
	LineNumber   int
	ColumnNumber int
}

// Breakpoint mirrors spec §3's Breakpoint.
type Breakpoint struct {
	BreakpointID string
	Location     Location
	Condition    string
	Enabled      bool
	HitCount     int
	CreatedAt    time.Time
}

// CallFrame mirrors spec §3's CallFrame, valid only while PausedState is
// live.
type CallFrame struct {
	CallFrameID string
	FunctionName string
	URL          string
	Location     Location
	ScopeChain   []Scope
}

// Scope is one entry of a call frame's scope chain.
type Scope struct {
	Type     string
	ObjectID string
	Name     string
}

// PausedState mirrors spec §3's PausedState.
type PausedState struct {
	CallFrames     []CallFrame
	Reason         string
	HitBreakpoints []string
	Data           any
	Timestamp      time.Time
}

// BreakpointHitEvent is the synthetic in-process event fired on every
// CDP Debugger.paused arrival, whether or not a breakpoint was hit.
type BreakpointHitEvent struct {
	Paused      PausedState
	TopScope    []ScopeVariable // pre-fetched top-scope variables for the first frame
}

// Callback receives a BreakpointHitEvent; callbacks are awaited
// sequentially in registration order (spec §5 ordering guarantee).
type Callback func(ctx context.Context, ev BreakpointHitEvent) error

// Core is the process-wide Debugger Core singleton.
type Core struct {
	mu               sync.Mutex
	state            State
	session          *cdp.Session
	breakpoints      map[string]*Breakpoint
	paused           *PausedState
	pauseOnExc       PauseOnExceptionsMode
	callbacks        []Callback
	waiters          []chan PausedState
	idgen            idgen.Generator

	Watch   *WatchManager
	XHR     *XHRBreakpointManager
	Event   *EventBreakpointManager
	Blackbox *BlackboxManager
}

// New constructs a Core and its subordinate managers. Subordinates are
// constructed now but only become live once Enable passes them the
// shared session.
func New() *Core {
	c := &Core{
		breakpoints: make(map[string]*Breakpoint),
		pauseOnExc:  PauseNone,
		idgen:       idgen.UUIDv7(),
	}
	c.Watch = newWatchManager(c)
	c.XHR = newXHRBreakpointManager()
	c.Event = newEventBreakpointManager()
	c.Blackbox = newBlackboxManager()
	return c
}

// State reports the core's current state machine position.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Enable transitions Disabled -> Enabled: enables the CDP Debugger
// domain on session and subscribes paused/resumed/breakpointResolved.
// Subordinate managers receive the same session. Idempotent.
func (c *Core) Enable(session *cdp.Session) error {
	c.mu.Lock()
	if c.state != Disabled {
		c.mu.Unlock()
		return nil
	}
	c.session = session
	c.state = Enabled
	c.mu.Unlock()

	page := session.Page()
	if err := (proto.DebuggerEnable{}).Call(page); err != nil {
		c.mu.Lock()
		c.state = Disabled
		c.mu.Unlock()
		return &errs.RemoteFailure{Command: "Debugger.enable", Cause: err}
	}

	c.XHR.attach(session)
	c.Event.attach(session)
	c.Blackbox.attach(session)
	c.Watch.attach(session)

	go page.Context(session.Context()).EachEvent(
		func(e *proto.DebuggerPaused) {
			c.onPaused(e)
		},
		func(e *proto.DebuggerResumed) {
			c.onResumed()
		},
		func(e *proto.DebuggerBreakpointResolved) {
			// resolution tracking is best-effort; the registry already
			// has the breakpoint keyed by the id CDP assigned at set-time.
		},
	)()

	return nil
}

// Disable transitions any state -> Disabled: unsubscribes listeners,
// detaches CDP, and clears the registry and waiters. Idempotent and must
// never leak listeners (spec §4.I).
func (c *Core) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disabled {
		return nil
	}
	if c.session != nil {
		_ = (proto.DebuggerDisable{}).Call(c.session.Page())
		c.session.Close()
	}
	c.state = Disabled
	c.session = nil
	c.breakpoints = make(map[string]*Breakpoint)
	c.paused = nil
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
	return nil
}

func (c *Core) requireEnabled() (*cdp.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disabled {
		return nil, &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	return c.session, nil
}

func (c *Core) requirePaused() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return &errs.PreconditionFailed{Condition: "not in paused state", Hint: "trigger or wait for a breakpoint hit first"}
	}
	return nil
}

// SetBreakpoint sets a breakpoint at loc (by ScriptID if set, else URL)
// with an optional condition.
func (c *Core) SetBreakpoint(loc Location, condition string) (*Breakpoint, error) {
	session, err := c.requireEnabled()
	if err != nil {
		return nil, err
	}
	if loc.ScriptID == "" && loc.URL == "" {
		return nil, &errs.InvalidArgument{Field: "location", Reason: "one of scriptId or url is required"}
	}
	if loc.LineNumber < 0 {
		return nil, &errs.InvalidArgument{Field: "lineNumber", Reason: "must be >= 0"}
	}

	var bpID string
	if loc.ScriptID != "" {
		res, err := (proto.DebuggerSetBreakpoint{
			Location: &proto.DebuggerLocation{
				ScriptID:     proto.RuntimeScriptID(loc.ScriptID),
				LineNumber:   loc.LineNumber,
				ColumnNumber: loc.ColumnNumber,
			},
			Condition: condition,
		}).Call(session.Page())
		if err != nil {
			return nil, &errs.RemoteFailure{Command: "Debugger.setBreakpoint", Cause: err}
		}
		bpID = string(res.BreakpointID)
	} else {
		res, err := (proto.DebuggerSetBreakpointByURL{
			LineNumber:   loc.LineNumber,
			URL:          loc.URL,
			ColumnNumber: loc.ColumnNumber,
			Condition:    condition,
		}).Call(session.Page())
		if err != nil {
			return nil, &errs.RemoteFailure{Command: "Debugger.setBreakpointByUrl", Cause: err}
		}
		bpID = string(res.BreakpointID)
	}

	bp := &Breakpoint{
		BreakpointID: bpID,
		Location:     loc,
		Condition:    condition,
		Enabled:      true,
		CreatedAt:    time.Now(),
	}

	c.mu.Lock()
	c.breakpoints[bpID] = bp
	c.mu.Unlock()

	return bp, nil
}

// RemoveBreakpoint removes a breakpoint by id. Registry removal only
// happens once CDP confirms removal, per §7's "state mutations must
// precede the first await" guidance applied in reverse for teardown.
func (c *Core) RemoveBreakpoint(id string) error {
	session, err := c.requireEnabled()
	if err != nil {
		return err
	}
	c.mu.Lock()
	_, ok := c.breakpoints[id]
	c.mu.Unlock()
	if !ok {
		return &errs.NotFound{Kind: "breakpoint", ID: id, Listing: "breakpoint_list"}
	}

	if err := (proto.DebuggerRemoveBreakpoint{BreakpointID: proto.DebuggerBreakpointID(id)}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.removeBreakpoint", Cause: err}
	}

	c.mu.Lock()
	delete(c.breakpoints, id)
	c.mu.Unlock()
	return nil
}

// ClearAllBreakpoints removes every registered breakpoint.
func (c *Core) ClearAllBreakpoints() error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.breakpoints))
	for id := range c.breakpoints {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.RemoveBreakpoint(id); err != nil {
			return err
		}
	}
	return nil
}

// ListBreakpoints returns every registered breakpoint.
func (c *Core) ListBreakpoints() []Breakpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Breakpoint, 0, len(c.breakpoints))
	for _, bp := range c.breakpoints {
		out = append(out, *bp)
	}
	return out
}

// SetBreakpointsActive toggles whether registered breakpoints fire.
func (c *Core) SetBreakpointsActive(active bool) error {
	session, err := c.requireEnabled()
	if err != nil {
		return err
	}
	if err := (proto.DebuggerSetBreakpointsActive{Active: active}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.setBreakpointsActive", Cause: err}
	}
	return nil
}

// SetPauseOnExceptions configures the exception-pause policy.
func (c *Core) SetPauseOnExceptions(mode PauseOnExceptionsMode) error {
	session, err := c.requireEnabled()
	if err != nil {
		return err
	}
	var state proto.DebuggerSetPauseOnExceptionsState
	switch mode {
	case PauseNone:
		state = proto.DebuggerSetPauseOnExceptionsStateNone
	case PauseUncaught:
		state = proto.DebuggerSetPauseOnExceptionsStateUncaught
	case PauseAll:
		state = proto.DebuggerSetPauseOnExceptionsStateAll
	default:
		return &errs.InvalidArgument{Field: "mode", Reason: "must be none, uncaught, or all"}
	}
	if err := (proto.DebuggerSetPauseOnExceptions{State: state}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.setPauseOnExceptions", Cause: err}
	}
	c.mu.Lock()
	c.pauseOnExc = mode
	c.mu.Unlock()
	return nil
}

// PauseOnExceptionsState reports the last-set mode.
func (c *Core) PauseOnExceptionsState() PauseOnExceptionsMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseOnExc
}

// Pause requests an immediate pause at the next statement.
func (c *Core) Pause() error {
	session, err := c.requireEnabled()
	if err != nil {
		return err
	}
	if err := (proto.DebuggerPause{}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.pause", Cause: err}
	}
	return nil
}

// Resume transitions Paused -> Enabled.
func (c *Core) Resume() error {
	if err := c.requirePaused(); err != nil {
		return err
	}
	session, _ := c.requireEnabled()
	if err := (proto.DebuggerResume{}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.resume", Cause: err}
	}
	return nil
}

// StepKind selects which step operation to issue.
type StepKind int

const (
	StepInto StepKind = iota
	StepOver
	StepOut
)

// Step issues the requested step operation. Paused-only.
func (c *Core) Step(kind StepKind) error {
	if err := c.requirePaused(); err != nil {
		return err
	}
	session, _ := c.requireEnabled()
	page := session.Page()
	var err error
	switch kind {
	case StepInto:
		err = (proto.DebuggerStepInto{}).Call(page)
	case StepOver:
		err = (proto.DebuggerStepOver{}).Call(page)
	case StepOut:
		err = (proto.DebuggerStepOut{}).Call(page)
	}
	if err != nil {
		return &errs.RemoteFailure{Command: "Debugger.step", Cause: err}
	}
	return nil
}

// EvaluateOnCallFrame wraps Debugger.evaluateOnCallFrame, always
// returning by value. Paused-only.
func (c *Core) EvaluateOnCallFrame(callFrameID, expression string) (any, error) {
	if err := c.requirePaused(); err != nil {
		return nil, err
	}
	session, _ := c.requireEnabled()

	res, err := (proto.DebuggerEvaluateOnCallFrame{
		CallFrameID:   proto.DebuggerCallFrameID(callFrameID),
		Expression:    expression,
		ReturnByValue: true,
	}).Call(session.Page())
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Debugger.evaluateOnCallFrame", Cause: err}
	}
	if res.ExceptionDetails != nil {
		return nil, &errs.RemoteFailure{Command: "Debugger.evaluateOnCallFrame", Cause: exceptionError(res.ExceptionDetails)}
	}
	if res.Result != nil && res.Result.Value != nil {
		return res.Result.Value.Val(), nil
	}
	return nil, nil
}

// Paused returns the current PausedState, or nil if not paused.
func (c *Core) Paused() *PausedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused == nil {
		return nil
	}
	cp := *c.paused
	return &cp
}

// OnBreakpointHit registers cb to run (sequentially, errors logged not
// raised) on every Debugger.paused arrival.
func (c *Core) OnBreakpointHit(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// WaitForPaused blocks until a pause occurs or timeout elapses. If
// already paused, returns immediately. The waiter's resolver is removed
// on timeout.
func (c *Core) WaitForPaused(ctx context.Context, timeout time.Duration) (*PausedState, error) {
	c.mu.Lock()
	if c.paused != nil {
		cp := *c.paused
		c.mu.Unlock()
		return &cp, nil
	}
	ch := make(chan PausedState, 1)
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ps, ok := <-ch:
		if !ok {
			return nil, &errs.PreconditionFailed{Condition: "debugger disabled while waiting", Hint: "call debugger_enable"}
		}
		return &ps, nil
	case <-timer.C:
		c.removeWaiter(ch)
		return nil, &errs.Timeout{Op: "waitForPaused", Timeout: timeout.String()}
	case <-ctx.Done():
		c.removeWaiter(ch)
		return nil, ctx.Err()
	}
}

func (c *Core) removeWaiter(target chan PausedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

func (c *Core) onPaused(e *proto.DebuggerPaused) {
	frames := make([]CallFrame, 0, len(e.CallFrames))
	for _, f := range e.CallFrames {
		cf := CallFrame{
			CallFrameID:  string(f.CallFrameID),
			FunctionName: f.FunctionName,
		}
		if f.Location != nil {
			cf.Location = Location{
				ScriptID:     string(f.Location.ScriptID),
				LineNumber:   f.Location.LineNumber,
				ColumnNumber: int(f.Location.ColumnNumber),
			}
		}
		for _, sc := range f.ScopeChain {
			scope := Scope{Type: string(sc.Type), Name: sc.Name}
			if sc.Object != nil {
				scope.ObjectID = string(sc.Object.ObjectID)
			}
			cf.ScopeChain = append(cf.ScopeChain, scope)
		}
		frames = append(frames, cf)
	}

	hit := make([]string, len(e.HitBreakpoints))
	copy(hit, e.HitBreakpoints)

	ps := PausedState{
		CallFrames:     frames,
		Reason:         string(e.Reason),
		HitBreakpoints: hit,
		Timestamp:      time.Now(),
	}

	c.mu.Lock()
	c.state = Paused
	c.paused = &ps
	for _, id := range hit {
		if bp, ok := c.breakpoints[id]; ok {
			bp.HitCount++
		}
	}
	waiters := c.waiters
	c.waiters = nil
	callbacks := append([]Callback(nil), c.callbacks...)
	c.mu.Unlock()

	for _, w := range waiters {
		w <- ps
		close(w)
	}

	topScope := c.topScopeVariablesBestEffort(&ps)
	ev := BreakpointHitEvent{Paused: ps, TopScope: topScope}
	for _, cb := range callbacks {
		if err := cb(context.Background(), ev); err != nil {
			if c.session != nil {
				c.session.Logger().Warn("breakpoint hit callback failed", "error", err)
			}
		}
	}
}

func (c *Core) topScopeVariablesBestEffort(ps *PausedState) []ScopeVariable {
	if len(ps.CallFrames) == 0 {
		return nil
	}
	vars, err := c.GetScopeVariables(ScopeVariableOptions{CallFrameID: ps.CallFrames[0].CallFrameID, MaxDepth: 1, SkipErrors: true})
	if err != nil {
		return nil
	}
	return vars
}

func (c *Core) onResumed() {
	c.mu.Lock()
	c.state = Enabled
	c.paused = nil
	c.mu.Unlock()
}

func exceptionError(ed *proto.RuntimeExceptionDetails) error {
	return &debugEvalError{text: ed.Text}
}

type debugEvalError struct{ text string }

func (e *debugEvalError) Error() string { return e.text }
