package debugger

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// EventBreakpoint mirrors one registered DOMDebugger event-listener
// breakpoint.
type EventBreakpoint struct {
	EventName  string
	TargetName string
}

// EventBundles are the predefined groups spec §4.I names.
var EventBundles = map[string][]EventBreakpoint{
	"mouse": {
		{EventName: "click"}, {EventName: "mousedown"}, {EventName: "mouseup"}, {EventName: "mousemove"},
	},
	"keyboard": {
		{EventName: "keydown"}, {EventName: "keyup"}, {EventName: "keypress"},
	},
	"timer": {
		{EventName: "setTimeout"}, {EventName: "setInterval"}, {EventName: "clearTimeout"}, {EventName: "clearInterval"},
	},
	"websocket": {
		{EventName: "send", TargetName: "WebSocket"}, {EventName: "close", TargetName: "WebSocket"},
	},
}

// EventBreakpointManager wraps DOMDebugger.set/removeEventListenerBreakpoint.
type EventBreakpointManager struct {
	mu      sync.Mutex
	session *cdp.Session
	set     map[string]EventBreakpoint
}

func newEventBreakpointManager() *EventBreakpointManager {
	return &EventBreakpointManager{set: make(map[string]EventBreakpoint)}
}

func (m *EventBreakpointManager) attach(session *cdp.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
}

func eventKey(eventName, targetName string) string { return targetName + ":" + eventName }

// Set registers a breakpoint on eventName (optionally scoped to
// targetName, e.g. "WebSocket").
func (m *EventBreakpointManager) Set(eventName, targetName string) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	if err := (proto.DOMDebuggerSetEventListenerBreakpoint{EventName: eventName, TargetName: targetName}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "DOMDebugger.setEventListenerBreakpoint", Cause: err}
	}
	m.mu.Lock()
	m.set[eventKey(eventName, targetName)] = EventBreakpoint{EventName: eventName, TargetName: targetName}
	m.mu.Unlock()
	return nil
}

// SetBundle registers every breakpoint in the named predefined bundle.
func (m *EventBreakpointManager) SetBundle(bundle string) error {
	entries, ok := EventBundles[bundle]
	if !ok {
		return &errs.InvalidArgument{Field: "bundle", Reason: "unknown bundle " + bundle}
	}
	for _, e := range entries {
		if err := m.Set(e.EventName, e.TargetName); err != nil {
			return err
		}
	}
	return nil
}

// Remove unregisters a previously-set breakpoint.
func (m *EventBreakpointManager) Remove(eventName, targetName string) error {
	key := eventKey(eventName, targetName)
	m.mu.Lock()
	session := m.session
	_, ok := m.set[key]
	m.mu.Unlock()
	if !ok {
		return &errs.NotFound{Kind: "eventBreakpoint", ID: key, Listing: "event_list_breakpoints"}
	}
	if session == nil {
		return &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	if err := (proto.DOMDebuggerRemoveEventListenerBreakpoint{EventName: eventName, TargetName: targetName}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "DOMDebugger.removeEventListenerBreakpoint", Cause: err}
	}
	m.mu.Lock()
	delete(m.set, key)
	m.mu.Unlock()
	return nil
}

// List returns every registered event breakpoint.
func (m *EventBreakpointManager) List() []EventBreakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventBreakpoint, 0, len(m.set))
	for _, e := range m.set {
		out = append(out, e)
	}
	return out
}
