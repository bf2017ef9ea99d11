package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerEventBreakpointTools(srv *mcp.Server) {
	d.registerEventSetBreakpoint(srv)
	d.registerEventSetBreakpointBundle(srv)
	d.registerEventRemoveBreakpoint(srv)
	d.registerEventListBreakpoints(srv)
}

type eventBreakpointRequest struct {
	EventName  string `json:"eventName"`
	TargetName string `json:"targetName,omitempty"`
}

func (d *Deps) registerEventSetBreakpoint(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "event_set_breakpoint",
		Description: "Pause whenever eventName fires on targetName (e.g. listener, instrumentation point).",
		InputSchema: inputSchema(map[string]any{
			"eventName":  str("DOM/instrumentation event name, e.g. click, setTimeout"),
			"targetName": str("optional target qualifier understood by the debugger"),
		}, []string{"eventName"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*eventBreakpointRequest)
		if err := d.Debugger.Event.Set(r.EventName, r.TargetName); err != nil {
			return nil, err
		}
		return map[string]any{"set": r.EventName}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[eventBreakpointRequest])
}

type eventBreakpointBundleRequest struct {
	Bundle string `json:"bundle"`
}

func (d *Deps) registerEventSetBreakpointBundle(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "event_set_breakpoint_bundle",
		Description: "Arm an entire preset group of event breakpoints at once: mouse, keyboard, timer, or websocket.",
		InputSchema: inputSchema(map[string]any{"bundle": strEnum("which preset group to arm", "mouse", "keyboard", "timer", "websocket")}, []string{"bundle"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*eventBreakpointBundleRequest)
		if err := d.Debugger.Event.SetBundle(r.Bundle); err != nil {
			return nil, err
		}
		return map[string]any{"bundle": r.Bundle}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[eventBreakpointBundleRequest])
}

func (d *Deps) registerEventRemoveBreakpoint(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "event_remove_breakpoint",
		Description: "Remove a previously set event breakpoint.",
		InputSchema: inputSchema(map[string]any{
			"eventName":  str("event name previously passed to event_set_breakpoint"),
			"targetName": str("target qualifier previously passed to event_set_breakpoint"),
		}, []string{"eventName"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*eventBreakpointRequest)
		if err := d.Debugger.Event.Remove(r.EventName, r.TargetName); err != nil {
			return nil, err
		}
		return map[string]any{"removed": r.EventName}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[eventBreakpointRequest])
}

func (d *Deps) registerEventListBreakpoints(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "event_list_breakpoints",
		Description: "List every registered event breakpoint.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Debugger.Event.List(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
