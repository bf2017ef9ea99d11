package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/debugger"
	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerBreakpointTools(srv *mcp.Server) {
	d.registerBreakpointSet(srv)
	d.registerBreakpointRemove(srv)
	d.registerBreakpointList(srv)
	d.registerBreakpointClearAll(srv)
	d.registerBreakpointSetActive(srv)
}

type breakpointSetRequest struct {
	ScriptID     string `json:"scriptId,omitempty"`
	URL          string `json:"url,omitempty"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

func (d *Deps) registerBreakpointSet(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "breakpoint_set",
		Description: "Set a line breakpoint by scriptId or url, optionally conditional. Either scriptId or url must be given.",
		InputSchema: inputSchema(map[string]any{
			"scriptId":     str("target script id (from script_list)"),
			"url":          str("target script url, mutually exclusive with scriptId"),
			"lineNumber":   integer("0-based line number"),
			"columnNumber": integer("0-based column number"),
			"condition":    str("optional JS boolean expression; breaks only when truthy"),
		}, []string{"lineNumber"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*breakpointSetRequest)
		bp, err := d.Debugger.SetBreakpoint(debugger.Location{
			ScriptID:     r.ScriptID,
			URL:          r.URL,
			LineNumber:   r.LineNumber,
			ColumnNumber: r.ColumnNumber,
		}, r.Condition)
		if err != nil {
			return nil, err
		}
		return bp, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[breakpointSetRequest])
}

type breakpointRemoveRequest struct {
	BreakpointID string `json:"breakpointId"`
}

func (d *Deps) registerBreakpointRemove(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "breakpoint_remove",
		Description: "Remove a previously set breakpoint by id.",
		InputSchema: inputSchema(map[string]any{"breakpointId": str("id from breakpoint_set or breakpoint_list")}, []string{"breakpointId"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*breakpointRemoveRequest)
		if err := d.Debugger.RemoveBreakpoint(r.BreakpointID); err != nil {
			return nil, err
		}
		return map[string]any{"removed": r.BreakpointID}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[breakpointRemoveRequest])
}

func (d *Deps) registerBreakpointList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "breakpoint_list",
		Description: "List every registered breakpoint and its hit count.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Debugger.ListBreakpoints())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerBreakpointClearAll(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "breakpoint_clear_all",
		Description: "Remove every registered breakpoint.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Debugger.ClearAllBreakpoints(); err != nil {
			return nil, err
		}
		return map[string]any{"cleared": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type breakpointSetActiveRequest struct {
	Active bool `json:"active"`
}

func (d *Deps) registerBreakpointSetActive(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "breakpoint_set_active",
		Description: "Globally enable or disable every registered breakpoint without removing them.",
		InputSchema: inputSchema(map[string]any{"active": boolean("true to arm breakpoints, false to suspend them")}, []string{"active"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*breakpointSetActiveRequest)
		if err := d.Debugger.SetBreakpointsActive(r.Active); err != nil {
			return nil, err
		}
		return map[string]any{"active": r.Active}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[breakpointSetActiveRequest])
}
