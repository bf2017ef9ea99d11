package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/hookengine"
	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerHookTools(srv *mcp.Server) {
	d.registerAIHookInstall(srv)
	d.registerAIHookAntiDebugBypass(srv)
	d.registerAIHookReportRecords(srv)
	d.registerAIHookGetRecords(srv)
	d.registerAIHookList(srv)
}

type aiHookConditionRequest struct {
	MaxCalls          int    `json:"maxCalls,omitempty"`
	MinIntervalMs     int64  `json:"minIntervalMs,omitempty"`
	ArgumentPredicate string `json:"argumentPredicate,omitempty"`
	ReturnPredicate   string `json:"returnPredicate,omitempty"`
}

type aiHookInstallRequest struct {
	Target      string                  `json:"target"`
	Type        string                  `json:"type"`
	Action      string                  `json:"action,omitempty"`
	CustomCode  string                  `json:"customCode,omitempty"`
	Condition   *aiHookConditionRequest `json:"condition,omitempty"`
	Performance bool                    `json:"performance,omitempty"`
}

func (d *Deps) registerAIHookInstall(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_hook_install",
		Description: "Generate a JavaScript hook payload for target (a function path, or an API surface like xhr/fetch/websocket/localstorage/cookie/eval), returning {hookId, script, instructions, injectionMethod}. The caller injects the script itself via page.Eval or page.EvalOnNewDocument per injectionMethod; the engine never evaluates it.",
		InputSchema: inputSchema(map[string]any{
			"target":      str("dotted path to a function/object-method, or the fixed name of an API surface for xhr/fetch/websocket/localstorage/cookie/eval targets"),
			"type":        strEnum("hook target kind", "function", "xhr", "fetch", "websocket", "localstorage", "cookie", "eval", "object-method"),
			"action":      strEnum("what the hook does on each call (default log)", "log", "block", "modify"),
			"customCode":  str("JS snippet spliced into the wrapper; required when action is modify"),
			"performance": boolean("time each call with performance.now(); the delta is not stored in the hook record"),
			"condition": map[string]any{
				"type":        "object",
				"description": "optional guard limiting when the hook fires",
				"properties": map[string]any{
					"maxCalls":          integer("stop recording after this many calls (0 = unlimited)"),
					"minIntervalMs":     integer("minimum milliseconds between recorded calls"),
					"argumentPredicate": str("JS boolean expression referencing `args`; hook only fires when truthy"),
					"returnPredicate":   str("JS boolean expression referencing `returnValue`; accepted but not evaluated by the generated hook"),
				},
			},
		}, []string{"target", "type"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiHookInstallRequest)
		action := hookengine.Action(r.Action)
		if action == "" {
			action = hookengine.ActionLog
		}
		opts := hookengine.HookOptions{
			Target:      r.Target,
			Type:        hookengine.TargetType(r.Type),
			Action:      action,
			CustomCode:  r.CustomCode,
			Performance: r.Performance,
		}
		if r.Condition != nil {
			opts.Condition = &hookengine.Condition{
				MaxCalls:          r.Condition.MaxCalls,
				MinInterval:       time.Duration(r.Condition.MinIntervalMs) * time.Millisecond,
				ArgumentPredicate: r.Condition.ArgumentPredicate,
				ReturnPredicate:   r.Condition.ReturnPredicate,
			}
		}
		result, err := d.Hooks.Generate(opts)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiHookInstallRequest])
}

func (d *Deps) registerAIHookAntiDebugBypass(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_hook_anti_debug_bypass",
		Description: "Return the fixed anti-debug-bypass script (masks debugger-detection traps); inject once via page.EvalOnNewDocument before navigation.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Hooks.AntiDebugBypass(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type aiHookRecordRequest struct {
	HookID      string          `json:"hookId"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Args        json.RawMessage `json:"args,omitempty"`
	ReturnValue json.RawMessage `json:"returnValue,omitempty"`
	Stack       string          `json:"stack,omitempty"`
}

type aiHookReportRecordsRequest struct {
	HookID  string                `json:"hookId"`
	Records []aiHookRecordRequest `json:"records"`
}

func (d *Deps) registerAIHookReportRecords(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_hook_report_records",
		Description: "Ingest invocation records the caller read back from the page's window.__aiHooks[hookId] accumulator, applying the bounded-retention rules (1000 per hook, 10000 total).",
		InputSchema: inputSchema(map[string]any{
			"hookId": str("hook id from ai_hook_install"),
			"records": map[string]any{
				"type":        "array",
				"description": "raw __aiHooks entries for this hook",
				"items":       map[string]any{"type": "object"},
			},
		}, []string{"hookId", "records"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiHookReportRecordsRequest)
		recs := make([]hookengine.HookRecord, 0, len(r.Records))
		for _, rr := range r.Records {
			ts := time.Now()
			if rr.Timestamp != "" {
				if t, err := time.Parse(time.RFC3339, rr.Timestamp); err == nil {
					ts = t
				}
			}
			recs = append(recs, hookengine.HookRecord{
				HookID:      r.HookID,
				Timestamp:   ts,
				Args:        rr.Args,
				ReturnValue: rr.ReturnValue,
				Stack:       rr.Stack,
			})
		}
		d.Hooks.RecordCallback(r.HookID, recs)
		return map[string]any{"ingested": len(recs)}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiHookReportRecordsRequest])
}

type aiHookGetRecordsRequest struct {
	HookID string `json:"hookId"`
}

func (d *Deps) registerAIHookGetRecords(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_hook_get_records",
		Description: "Return every stored invocation record for hookId.",
		InputSchema: inputSchema(map[string]any{"hookId": str("hook id from ai_hook_install")}, []string{"hookId"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiHookGetRecordsRequest)
		recs, err := d.Hooks.Records(r.HookID)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(recs)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiHookGetRecordsRequest])
}

func (d *Deps) registerAIHookList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_hook_list",
		Description: "List every installed hook's id.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Hooks.List(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
