package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerXHRBreakpointTools(srv *mcp.Server) {
	d.registerXHRSetBreakpoint(srv)
	d.registerXHRRemoveBreakpoint(srv)
	d.registerXHRListBreakpoints(srv)
}

type xhrURLPatternRequest struct {
	URLPattern string `json:"urlPattern"`
}

func (d *Deps) registerXHRSetBreakpoint(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xhr_set_breakpoint",
		Description: "Pause whenever an XHR/fetch request's URL contains urlPattern.",
		InputSchema: inputSchema(map[string]any{"urlPattern": str("substring to match against request URLs")}, []string{"urlPattern"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*xhrURLPatternRequest)
		if err := d.Debugger.XHR.Set(r.URLPattern); err != nil {
			return nil, err
		}
		return map[string]any{"set": r.URLPattern}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[xhrURLPatternRequest])
}

func (d *Deps) registerXHRRemoveBreakpoint(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xhr_remove_breakpoint",
		Description: "Remove a previously set XHR breakpoint.",
		InputSchema: inputSchema(map[string]any{"urlPattern": str("pattern previously passed to xhr_set_breakpoint")}, []string{"urlPattern"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*xhrURLPatternRequest)
		if err := d.Debugger.XHR.Remove(r.URLPattern); err != nil {
			return nil, err
		}
		return map[string]any{"removed": r.URLPattern}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[xhrURLPatternRequest])
}

func (d *Deps) registerXHRListBreakpoints(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xhr_list_breakpoints",
		Description: "List every registered XHR breakpoint.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Debugger.XHR.List(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
