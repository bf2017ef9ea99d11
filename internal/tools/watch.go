package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerWatchTools(srv *mcp.Server) {
	d.registerWatchAdd(srv)
	d.registerWatchRemove(srv)
	d.registerWatchList(srv)
	d.registerWatchEvaluateAll(srv)
}

type watchAddRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func (d *Deps) registerWatchAdd(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "watch_add",
		Description: "Register a named watch expression, evaluated against the paused call frame (or the page global, if not paused) by watch_evaluate_all.",
		InputSchema: inputSchema(map[string]any{
			"name":       str("label for this watch"),
			"expression": str("JS expression"),
		}, []string{"name", "expression"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*watchAddRequest)
		d.Debugger.Watch.Add(r.Name, r.Expression)
		return map[string]any{"added": r.Name}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[watchAddRequest])
}

type watchRemoveRequest struct {
	Name string `json:"name"`
}

func (d *Deps) registerWatchRemove(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "watch_remove",
		Description: "Remove a previously registered watch expression by name.",
		InputSchema: inputSchema(map[string]any{"name": str("watch name")}, []string{"name"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*watchRemoveRequest)
		return map[string]any{"removed": d.Debugger.Watch.Remove(r.Name)}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[watchRemoveRequest])
}

func (d *Deps) registerWatchList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "watch_list",
		Description: "List every registered watch expression.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Debugger.Watch.List(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerWatchEvaluateAll(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "watch_evaluate_all",
		Description: "Evaluate every registered watch expression and return each one's value or error.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Debugger.Watch.EvaluateAll())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
