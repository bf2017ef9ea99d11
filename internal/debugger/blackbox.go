package debugger

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// CommonLibraryBlackboxPatterns is the preset bundle spec §4.I names:
// URL regular expressions for the usual third-party library suspects a reverse
// engineer wants the debugger to step through, not into.
var CommonLibraryBlackboxPatterns = []string{
	`.*jquery.*`, `.*react.*`, `.*vue.*`, `.*angular.*`, `.*lodash.*`,
	`.*moment.*`, `.*axios.*`, `.*node_modules.*`, `.*webpack.*`,
	`.*bundle.*`, `.*vendor.*`,
}

// BlackboxManager maintains the set of URL regex patterns pushed to
// Debugger.setBlackboxPatterns as a whole on every change.
type BlackboxManager struct {
	mu       sync.Mutex
	session  *cdp.Session
	patterns map[string]bool
}

func newBlackboxManager() *BlackboxManager {
	return &BlackboxManager{patterns: make(map[string]bool)}
}

func (m *BlackboxManager) attach(session *cdp.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
}

// Add adds pattern to the blackbox set and re-pushes the full set.
func (m *BlackboxManager) Add(pattern string) error {
	m.mu.Lock()
	m.patterns[pattern] = true
	m.mu.Unlock()
	return m.push()
}

// Remove removes pattern from the blackbox set and re-pushes.
func (m *BlackboxManager) Remove(pattern string) error {
	m.mu.Lock()
	delete(m.patterns, pattern)
	m.mu.Unlock()
	return m.push()
}

// ApplyPreset adds every pattern in CommonLibraryBlackboxPatterns.
func (m *BlackboxManager) ApplyPreset() error {
	m.mu.Lock()
	for _, p := range CommonLibraryBlackboxPatterns {
		m.patterns[p] = true
	}
	m.mu.Unlock()
	return m.push()
}

// List returns the current pattern set.
func (m *BlackboxManager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.patterns))
	for p := range m.patterns {
		out = append(out, p)
	}
	return out
}

func (m *BlackboxManager) push() error {
	m.mu.Lock()
	session := m.session
	patterns := make([]string, 0, len(m.patterns))
	for p := range m.patterns {
		patterns = append(patterns, p)
	}
	m.mu.Unlock()

	if session == nil {
		return &errs.PreconditionFailed{Condition: "debugger not enabled", Hint: "call debugger_enable first"}
	}
	if err := (proto.DebuggerSetBlackboxPatterns{Patterns: patterns}).Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Debugger.setBlackboxPatterns", Cause: err}
	}
	return nil
}
