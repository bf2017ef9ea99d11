package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/debugger"
	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerDebuggerTools(srv *mcp.Server) {
	d.registerDebuggerEnable(srv)
	d.registerDebuggerDisable(srv)
	d.registerDebuggerGetState(srv)
	d.registerDebuggerPause(srv)
	d.registerDebuggerResume(srv)
	d.registerDebuggerStep(srv)
	d.registerDebuggerEvaluateOnCallFrame(srv)
	d.registerDebuggerGetPausedState(srv)
	d.registerDebuggerGetScopeVariables(srv)
	d.registerDebuggerSetPauseOnExceptions(srv)
	d.registerDebuggerGetPauseOnExceptionsState(srv)
	d.registerDebuggerWaitForPaused(srv)
	d.registerDebuggerExportSession(srv)
	d.registerDebuggerImportSession(srv)
	d.registerDebuggerSaveSession(srv)
	d.registerDebuggerLoadSession(srv)
	d.registerDebuggerListSavedSessions(srv)
}

func (d *Deps) registerDebuggerEnable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_enable",
		Description: "Enable the Debugger Core: attaches the CDP Debugger domain and its subordinate breakpoint managers to the active page.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		session, err := d.Browser.NewSession(ctx, "debugger")
		if err != nil {
			return nil, err
		}
		if err := d.Debugger.Enable(session); err != nil {
			return nil, err
		}
		return map[string]any{"state": d.Debugger.State().String()}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerDebuggerDisable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_disable",
		Description: "Disable the Debugger Core, clearing every breakpoint and waiter.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Debugger.Disable(); err != nil {
			return nil, err
		}
		return map[string]any{"state": d.Debugger.State().String()}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerDebuggerGetState(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_get_state",
		Description: "Report the Debugger Core's current state (disabled, enabled, paused).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return map[string]any{"state": d.Debugger.State().String()}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerDebuggerPause(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_pause",
		Description: "Request an immediate pause at the next statement.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Debugger.Pause(); err != nil {
			return nil, err
		}
		return map[string]any{"requested": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerDebuggerResume(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_resume",
		Description: "Resume execution from a paused state.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Debugger.Resume(); err != nil {
			return nil, err
		}
		return map[string]any{"resumed": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type debuggerStepRequest struct {
	Kind string `json:"kind"`
}

func (d *Deps) registerDebuggerStep(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_step",
		Description: "Step once while paused: into, over, or out.",
		InputSchema: inputSchema(map[string]any{
			"kind": strEnum("step direction", "into", "over", "out"),
		}, []string{"kind"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*debuggerStepRequest)
		var kind debugger.StepKind
		switch r.Kind {
		case "into":
			kind = debugger.StepInto
		case "over":
			kind = debugger.StepOver
		case "out":
			kind = debugger.StepOut
		default:
			return nil, fmt.Errorf("debugger_step: unknown kind %q", r.Kind)
		}
		if err := d.Debugger.Step(kind); err != nil {
			return nil, err
		}
		return map[string]any{"stepped": r.Kind}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[debuggerStepRequest])
}

type evaluateOnCallFrameRequest struct {
	CallFrameID string `json:"callFrameId"`
	Expression  string `json:"expression"`
}

func (d *Deps) registerDebuggerEvaluateOnCallFrame(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_evaluate_on_call_frame",
		Description: "Evaluate a JS expression in the context of a paused call frame.",
		InputSchema: inputSchema(map[string]any{
			"callFrameId": str("target call frame id, from debugger_get_paused_state"),
			"expression":  str("JS expression"),
		}, []string{"callFrameId", "expression"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*evaluateOnCallFrameRequest)
		val, err := d.Debugger.EvaluateOnCallFrame(r.CallFrameID, r.Expression)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(map[string]any{"value": val})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[evaluateOnCallFrameRequest])
}

func (d *Deps) registerDebuggerGetPausedState(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_get_paused_state",
		Description: "Return the current paused state (call frames, reason, hit breakpoints), or null if not paused.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Debugger.Paused())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type getScopeVariablesRequest struct {
	CallFrameID             string `json:"callFrameId,omitempty"`
	IncludeObjectProperties bool   `json:"includeObjectProperties,omitempty"`
	MaxDepth                int    `json:"maxDepth,omitempty"`
	// SkipErrors is a pointer so an omitted argument can be told apart
	// from an explicit false; spec §4.I defaults it to true.
	SkipErrors *bool `json:"skipErrors,omitempty"`
}

func (d *Deps) registerDebuggerGetScopeVariables(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_get_scope_variables",
		Description: "Walk the scope chain of a paused call frame and return its variables.",
		InputSchema: inputSchema(map[string]any{
			"callFrameId":             str("call frame id; defaults to the top frame"),
			"includeObjectProperties": boolean("expand one level of object properties"),
			"maxDepth":                integer("expansion depth (default 1)"),
			"skipErrors":              boolean("skip scopes that fail to fetch instead of failing the whole call (default true)"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getScopeVariablesRequest)
		skipErrors := r.SkipErrors == nil || *r.SkipErrors
		vars, err := d.Debugger.GetScopeVariables(debugger.ScopeVariableOptions{
			CallFrameID:             r.CallFrameID,
			IncludeObjectProperties: r.IncludeObjectProperties,
			MaxDepth:                r.MaxDepth,
			SkipErrors:              skipErrors,
		})
		if err != nil {
			return nil, err
		}
		return d.smartHandle(vars)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[getScopeVariablesRequest])
}

type setPauseOnExceptionsRequest struct {
	Mode string `json:"mode"`
}

func (d *Deps) registerDebuggerSetPauseOnExceptions(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_set_pause_on_exceptions",
		Description: "Configure the exception-pause policy: none, uncaught, or all.",
		InputSchema: inputSchema(map[string]any{
			"mode": strEnum("exception pause policy", "none", "uncaught", "all"),
		}, []string{"mode"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*setPauseOnExceptionsRequest)
		if err := d.Debugger.SetPauseOnExceptions(debugger.PauseOnExceptionsMode(r.Mode)); err != nil {
			return nil, err
		}
		return map[string]any{"mode": r.Mode}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[setPauseOnExceptionsRequest])
}

func (d *Deps) registerDebuggerGetPauseOnExceptionsState(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_get_pause_on_exceptions_state",
		Description: "Report the currently configured exception-pause policy.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return map[string]any{"mode": string(d.Debugger.PauseOnExceptionsState())}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type waitForPausedRequest struct {
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

func (d *Deps) registerDebuggerWaitForPaused(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_wait_for_paused",
		Description: "Block until the next pause (or return immediately if already paused), up to timeoutMs.",
		InputSchema: inputSchema(map[string]any{
			"timeoutMs": integer("max wait in milliseconds (default 30000)"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*waitForPausedRequest)
		timeout := 30 * time.Second
		if r.TimeoutMs > 0 {
			timeout = time.Duration(r.TimeoutMs) * time.Millisecond
		}
		ps, err := d.Debugger.WaitForPaused(ctx, timeout)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(ps)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[waitForPausedRequest])
}

type exportSessionRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (d *Deps) registerDebuggerExportSession(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_export_session",
		Description: "Snapshot every registered breakpoint and the exception-pause policy as a portable session object.",
		InputSchema: inputSchema(map[string]any{
			"metadata": map[string]any{"type": "object", "description": "arbitrary caller-supplied annotation"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportSessionRequest)
		return d.Debugger.ExportSession(r.Metadata), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[exportSessionRequest])
}

type importSessionRequest struct {
	Session debugger.SessionSnapshot `json:"session"`
}

func (d *Deps) registerDebuggerImportSession(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_import_session",
		Description: "Clear every breakpoint and reinstall the set from a previously exported session.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "object", "description": "a debugger_export_session result"},
		}, []string{"session"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*importSessionRequest)
		if err := d.Debugger.ImportSession(r.Session); err != nil {
			return nil, err
		}
		return map[string]any{"imported": len(r.Session.Breakpoints)}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[importSessionRequest])
}

type saveSessionRequest struct {
	Session debugger.SessionSnapshot `json:"session"`
	Path    string                   `json:"path,omitempty"`
}

func (d *Deps) registerDebuggerSaveSession(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_save_session",
		Description: "Write a session snapshot to disk, defaulting to the session directory.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "object", "description": "a debugger_export_session result"},
			"path":    str("destination file path (optional)"),
		}, []string{"session"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*saveSessionRequest)
		path, err := d.Debugger.SaveSession(r.Session, r.Path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"path": path}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[saveSessionRequest])
}

type loadSessionRequest struct {
	Path string `json:"path"`
}

func (d *Deps) registerDebuggerLoadSession(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_load_session",
		Description: "Read a session snapshot previously written by debugger_save_session.",
		InputSchema: inputSchema(map[string]any{"path": str("session file path")}, []string{"path"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*loadSessionRequest)
		snap, err := debugger.LoadSessionFromFile(r.Path)
		if err != nil {
			return nil, err
		}
		return snap, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[loadSessionRequest])
}

func (d *Deps) registerDebuggerListSavedSessions(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "debugger_list_saved_sessions",
		Description: "List previously saved session files, newest first.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		sessions, err := debugger.ListSavedSessions()
		if err != nil {
			return nil, err
		}
		return sessions, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
