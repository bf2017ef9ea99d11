// Package consolemonitor implements the Console/Exception Monitor (spec
// §4.H): bounded ring buffers of console messages and thrown exceptions,
// an evaluate-in-page helper, and a set of idempotent in-page JS
// injectors posted once via Runtime.evaluate. It owns the Runtime and
// Console CDP domains on its own cdp.Session, separate from the
// Debugger Core's shared session (spec §5).
package consolemonitor

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// MaxMessages / MaxExceptions bound the ring buffers (spec §3). On
// overflow the newer half is retained.
const (
	MaxMessages   = 1000
	MaxExceptions = 500
)

//go:embed scripts/dynamic_scripts.js
var dynamicScriptsJS string

//go:embed scripts/xhr_interceptor.js
var xhrInterceptorJS string

//go:embed scripts/fetch_interceptor.js
var fetchInterceptorJS string

//go:embed scripts/function_tracer.js
var functionTracerJS string

//go:embed scripts/property_watcher.js
var propertyWatcherJS string

// Message mirrors spec §3's ConsoleMessage.
type Message struct {
	Type      string
	Text      string
	URL       string
	Timestamp time.Time
	Args      []string
}

// Exception mirrors spec §3's ExceptionInfo.
type Exception struct {
	Text      string
	URL       string
	Line      int
	Column    int
	Stack     string
	Timestamp time.Time
}

// Monitor is the process's console/runtime capture subsystem.
type Monitor struct {
	mu         sync.RWMutex
	session    *cdp.Session
	enabled    bool
	messages   []Message
	exceptions []Exception
}

// New creates an empty, disabled Monitor.
func New() *Monitor { return &Monitor{} }

// Enable subscribes Runtime.consoleAPICalled/exceptionThrown and
// Console.messageAdded on session, enabling both CDP domains. Idempotent.
func (m *Monitor) Enable(session *cdp.Session) error {
	m.mu.Lock()
	if m.enabled {
		m.mu.Unlock()
		return nil
	}
	m.session = session
	m.enabled = true
	m.mu.Unlock()

	page := session.Page()
	if err := proto.RuntimeEnable{}.Call(page); err != nil {
		return &errs.RemoteFailure{Command: "Runtime.enable", Cause: err}
	}
	if err := proto.ConsoleEnable{}.Call(page); err != nil {
		m.session.Logger().Warn("console.enable failed (deprecated domain)", "error", err)
	}

	go page.Context(session.Context()).EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			m.onConsoleAPI(e)
		},
		func(e *proto.RuntimeExceptionThrown) {
			m.onException(e)
		},
		func(e *proto.ConsoleMessageAdded) {
			m.onConsoleMessage(e)
		},
	)()

	return nil
}

// Disable detaches listeners and disables both CDP domains. Idempotent.
func (m *Monitor) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return nil
	}
	if m.session != nil {
		_ = proto.RuntimeDisable{}.Call(m.session.Page())
		_ = proto.ConsoleDisable{}.Call(m.session.Page())
		m.session.Close()
	}
	m.enabled = false
	m.session = nil
	return nil
}

func (m *Monitor) onConsoleAPI(e *proto.RuntimeConsoleAPICalled) {
	var args []string
	for _, a := range e.Args {
		args = append(args, describeRemoteObject(a))
	}
	msg := Message{
		Type:      string(e.Type),
		Text:      strings.Join(args, " "),
		Timestamp: time.UnixMilli(int64(e.Timestamp)),
		Args:      args,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	m.trimMessagesLocked()
}

func (m *Monitor) onConsoleMessage(e *proto.ConsoleMessageAdded) {
	msg := Message{
		Type:      string(e.Message.Level),
		Text:      e.Message.Text,
		URL:       e.Message.URL,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Console.messageAdded is deprecated in modern Chromium and may
	// duplicate a RuntimeConsoleAPICalled event for the same line; dedupe
	// by timestamp+text within a 1s window rather than dropping the
	// (CDP-documented) event outright.
	for i := len(m.messages) - 1; i >= 0 && i >= len(m.messages)-5; i-- {
		if m.messages[i].Text == msg.Text && msg.Timestamp.Sub(m.messages[i].Timestamp) < time.Second {
			return
		}
	}
	m.messages = append(m.messages, msg)
	m.trimMessagesLocked()
}

func (m *Monitor) onException(e *proto.RuntimeExceptionThrown) {
	exc := Exception{
		Text:      e.ExceptionDetails.Text,
		Timestamp: time.UnixMilli(int64(e.Timestamp)),
	}
	if e.ExceptionDetails.URL != "" {
		exc.URL = e.ExceptionDetails.URL
	}
	exc.Line = int(e.ExceptionDetails.LineNumber)
	exc.Column = int(e.ExceptionDetails.ColumnNumber)
	if e.ExceptionDetails.StackTrace != nil {
		var frames []string
		for _, f := range e.ExceptionDetails.StackTrace.CallFrames {
			frames = append(frames, fmt.Sprintf("%s (%s:%d:%d)", f.FunctionName, f.URL, f.LineNumber, f.ColumnNumber))
		}
		exc.Stack = strings.Join(frames, "\n")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceptions = append(m.exceptions, exc)
	m.trimExceptionsLocked()
}

func (m *Monitor) trimMessagesLocked() {
	if len(m.messages) > MaxMessages {
		half := len(m.messages) / 2
		m.messages = append([]Message(nil), m.messages[half:]...)
	}
}

func (m *Monitor) trimExceptionsLocked() {
	if len(m.exceptions) > MaxExceptions {
		half := len(m.exceptions) / 2
		m.exceptions = append([]Exception(nil), m.exceptions[half:]...)
	}
}

func describeRemoteObject(obj *proto.RuntimeRemoteObject) string {
	if obj == nil {
		return ""
	}
	if obj.Value != nil {
		return fmt.Sprintf("%v", obj.Value.Val())
	}
	if obj.Description != "" {
		return obj.Description
	}
	return string(obj.Type)
}

// Filter narrows Messages by type/url substring, since-time, and limit
// (0 = no limit), newest last.
type Filter struct {
	Type  string
	URL   string
	Since time.Time
	Limit int
}

func (m *Monitor) Messages(f Filter) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Message
	for _, msg := range m.messages {
		if f.Type != "" && msg.Type != f.Type {
			continue
		}
		if f.URL != "" && !strings.Contains(msg.URL, f.URL) {
			continue
		}
		if !f.Since.IsZero() && msg.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, msg)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

func (m *Monitor) Exceptions(f Filter) []Exception {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Exception
	for _, exc := range m.exceptions {
		if f.URL != "" && !strings.Contains(exc.URL, f.URL) {
			continue
		}
		if !f.Since.IsZero() && exc.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, exc)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Execute issues a value-returning Runtime.evaluate against the page
// global and surfaces an exception as an error (spec §4.H).
func (m *Monitor) Execute(expression string) (any, error) {
	m.mu.RLock()
	session := m.session
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled || session == nil {
		return nil, &errs.PreconditionFailed{Condition: "console monitor not enabled", Hint: "call console_enable first"}
	}

	res, err := proto.RuntimeEvaluate{Expression: expression, ReturnByValue: true}.Call(session.Page())
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Runtime.evaluate", Cause: err}
	}
	if res.ExceptionDetails != nil {
		return nil, fmt.Errorf("evaluate threw: %s", res.ExceptionDetails.Text)
	}
	if res.Result.Value != nil {
		return res.Result.Value.Val(), nil
	}
	return nil, nil
}

func (m *Monitor) eval(script string) error {
	m.mu.RLock()
	session := m.session
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled || session == nil {
		return &errs.PreconditionFailed{Condition: "console monitor not enabled", Hint: "call console_enable first"}
	}
	res, err := proto.RuntimeEvaluate{Expression: script, ReturnByValue: false}.Call(session.Page())
	if err != nil {
		return &errs.RemoteFailure{Command: "Runtime.evaluate", Cause: err}
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("injector threw: %s", res.ExceptionDetails.Text)
	}
	return nil
}

// EnableDynamicScriptMonitoring installs the MutationObserver + eval/
// Function/createElement hooks described in spec §4.H.
func (m *Monitor) EnableDynamicScriptMonitoring() error { return m.eval(dynamicScriptsJS) }

// InjectXHRInterceptor wraps XMLHttpRequest to record every request.
func (m *Monitor) InjectXHRInterceptor() error { return m.eval(xhrInterceptorJS) }

// InjectFetchInterceptor wraps window.fetch via Proxy.
func (m *Monitor) InjectFetchInterceptor() error { return m.eval(fetchInterceptorJS) }

// InjectFunctionTracer replaces window[name] with a tracing Proxy.
func (m *Monitor) InjectFunctionTracer(name string) error {
	script := strings.ReplaceAll(functionTracerJS, "__FN_NAME__", jsStringEscape(name))
	return m.eval(script)
}

// InjectPropertyWatcher replaces the property at path.name with a
// getter/setter pair that logs every access.
func (m *Monitor) InjectPropertyWatcher(path, name string) error {
	s := propertyWatcherJS
	s = strings.ReplaceAll(s, "__PROP_PATH__", jsStringEscape(path))
	s = strings.ReplaceAll(s, "__PROP_NAME__", jsStringEscape(name))
	return m.eval(s)
}

func jsStringEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

// Enabled reports whether console_enable has run.
func (m *Monitor) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// --- cachecoord.CacheInstance ---

type CacheAdapter struct{ *Monitor }

func (a CacheAdapter) Name() string { return "consolemonitor" }

func (a CacheAdapter) Stats() cachecoord.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cachecoord.Stats{Name: "consolemonitor", Entries: len(a.messages) + len(a.exceptions)}
}

func (a CacheAdapter) Cleanup() int64 { return 0 }

func (a CacheAdapter) Clear() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.messages) + len(a.exceptions)
	a.messages = nil
	a.exceptions = nil
	return int64(n)
}
