package debugger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brennhill/revagent/internal/errs"
)

// SessionLocation is the export/import-safe shape of a Location: only
// one of URL/ScriptID is expected to be populated (spec §6).
type SessionLocation struct {
	URL          string `json:"url,omitempty"`
	ScriptID     string `json:"scriptId,omitempty"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
}

// SessionBreakpoint is the export/import-safe shape of a Breakpoint.
type SessionBreakpoint struct {
	Location  SessionLocation `json:"location"`
	Condition string          `json:"condition,omitempty"`
	Enabled   bool            `json:"enabled"`
}

// SessionSnapshot mirrors the §6 persisted session schema exactly.
type SessionSnapshot struct {
	Version           string              `json:"version"`
	Timestamp         time.Time           `json:"timestamp"`
	Breakpoints       []SessionBreakpoint `json:"breakpoints"`
	PauseOnExceptions string              `json:"pauseOnExceptions"`
	Metadata          map[string]any      `json:"metadata,omitempty"`
}

// ExportSession snapshots the registry's current breakpoints and
// pause-on-exceptions mode.
func (c *Core) ExportSession(metadata map[string]any) SessionSnapshot {
	bps := c.ListBreakpoints()
	sort.Slice(bps, func(i, j int) bool { return bps[i].BreakpointID < bps[j].BreakpointID })

	snap := SessionSnapshot{
		Version:           "1.0",
		Timestamp:         time.Now(),
		PauseOnExceptions: string(c.PauseOnExceptionsState()),
		Metadata:          metadata,
	}
	for _, bp := range bps {
		snap.Breakpoints = append(snap.Breakpoints, SessionBreakpoint{
			Location: SessionLocation{
				URL:          bp.Location.URL,
				ScriptID:     bp.Location.ScriptID,
				LineNumber:   bp.Location.LineNumber,
				ColumnNumber: bp.Location.ColumnNumber,
			},
			Condition: bp.Condition,
			Enabled:   bp.Enabled,
		})
	}
	return snap
}

// ImportSession clears every existing breakpoint, then reinstalls each
// from snap by URL or scriptId, and restores pauseOnExceptions.
func (c *Core) ImportSession(snap SessionSnapshot) error {
	if err := c.ClearAllBreakpoints(); err != nil {
		return err
	}
	for _, bp := range snap.Breakpoints {
		loc := Location{
			URL:          bp.Location.URL,
			ScriptID:     bp.Location.ScriptID,
			LineNumber:   bp.Location.LineNumber,
			ColumnNumber: bp.Location.ColumnNumber,
		}
		if _, err := c.SetBreakpoint(loc, bp.Condition); err != nil {
			return fmt.Errorf("debugger: import breakpoint %+v: %w", loc, err)
		}
	}
	if snap.PauseOnExceptions != "" {
		if err := c.SetPauseOnExceptions(PauseOnExceptionsMode(snap.PauseOnExceptions)); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSessionDir is where SaveSession writes when no path is given
// (spec §4.I / §6).
const DefaultSessionDir = "./debugger-sessions"

// SaveSession writes snap as JSON to path, or to
// DefaultSessionDir/session-<epochMillis>.json when path is empty.
func (c *Core) SaveSession(snap SessionSnapshot, path string) (string, error) {
	if path == "" {
		if err := os.MkdirAll(DefaultSessionDir, 0o755); err != nil {
			return "", fmt.Errorf("debugger: mkdir session dir: %w", err)
		}
		path = filepath.Join(DefaultSessionDir, fmt.Sprintf("session-%d.json", time.Now().UnixMilli()))
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("debugger: marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("debugger: write session %s: %w", path, err)
	}
	return path, nil
}

// LoadSessionFromFile reads and parses a session file previously written
// by SaveSession.
func LoadSessionFromFile(path string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, &errs.NotFound{Kind: "sessionFile", ID: path, Listing: "debugger_list_saved_sessions"}
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("debugger: parse session %s: %w", path, err)
	}
	return snap, nil
}

// SavedSession describes one entry from ListSavedSessions.
type SavedSession struct {
	Path      string
	Timestamp time.Time
}

// ListSavedSessions scans DefaultSessionDir, sorted newest-first.
func ListSavedSessions() ([]SavedSession, error) {
	entries, err := os.ReadDir(DefaultSessionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("debugger: read session dir: %w", err)
	}

	var out []SavedSession
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, SavedSession{Path: filepath.Join(DefaultSessionDir, e.Name()), Timestamp: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
