package debugger

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// XHRBreakpoint mirrors one registered DOMDebugger.setXHRBreakpoint entry.
type XHRBreakpoint struct {
	URLPattern string
	HitCount   int
}

// XHRBreakpointManager wraps DOMDebugger.set/removeXHRBreakpoint.
type XHRBreakpointManager struct {
	mu      sync.Mutex
	session *cdp.Session
	byURL   map[string]*XHRBreakpoint
}

func newXHRBreakpointManager() *XHRBreakpointManager {
	return &XHRBreakpointManager{byURL: make(map[string]*XHRBreakpoint)}
}

func (m *XHRBreakpointManager) attach(session *cdp.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
}

// Set registers a breakpoint for requests whose URL contains urlPattern.
func (m *XHRBreakpointManager) Set(urlPattern string) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	if err := (proto.DOMDebuggerSetXHRBreakpoint{URL: urlPattern}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "DOMDebugger.setXHRBreakpoint", Cause: err}
	}
	m.mu.Lock()
	m.byURL[urlPattern] = &XHRBreakpoint{URLPattern: urlPattern}
	m.mu.Unlock()
	return nil
}

// Remove unregisters a breakpoint previously set for urlPattern.
func (m *XHRBreakpointManager) Remove(urlPattern string) error {
	m.mu.Lock()
	session := m.session
	_, ok := m.byURL[urlPattern]
	m.mu.Unlock()
	if !ok {
		return &errs.NotFound{Kind: "xhrBreakpoint", ID: urlPattern, Listing: "xhr_list_breakpoints"}
	}
	if session == nil {
		return &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	if err := (proto.DOMDebuggerRemoveXHRBreakpoint{URL: urlPattern}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "DOMDebugger.removeXHRBreakpoint", Cause: err}
	}
	m.mu.Lock()
	delete(m.byURL, urlPattern)
	m.mu.Unlock()
	return nil
}

// List returns every registered XHR breakpoint.
func (m *XHRBreakpointManager) List() []XHRBreakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]XHRBreakpoint, 0, len(m.byURL))
	for _, bp := range m.byURL {
		out = append(out, *bp)
	}
	return out
}
