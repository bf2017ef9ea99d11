package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerBlackboxTools(srv *mcp.Server) {
	d.registerBlackboxAdd(srv)
	d.registerBlackboxRemove(srv)
	d.registerBlackboxList(srv)
	d.registerBlackboxApplyPreset(srv)
}

type blackboxPatternRequest struct {
	Pattern string `json:"pattern"`
}

func (d *Deps) registerBlackboxAdd(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blackbox_add",
		Description: "Step over scripts whose URL matches pattern instead of stepping into them.",
		InputSchema: inputSchema(map[string]any{"pattern": str("regular expression matched against script URLs")}, []string{"pattern"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*blackboxPatternRequest)
		if err := d.Debugger.Blackbox.Add(r.Pattern); err != nil {
			return nil, err
		}
		return map[string]any{"added": r.Pattern}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[blackboxPatternRequest])
}

func (d *Deps) registerBlackboxRemove(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blackbox_remove",
		Description: "Remove a previously blackboxed URL pattern.",
		InputSchema: inputSchema(map[string]any{"pattern": str("pattern previously passed to blackbox_add")}, []string{"pattern"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*blackboxPatternRequest)
		if err := d.Debugger.Blackbox.Remove(r.Pattern); err != nil {
			return nil, err
		}
		return map[string]any{"removed": r.Pattern}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[blackboxPatternRequest])
}

func (d *Deps) registerBlackboxList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blackbox_list",
		Description: "List every blackboxed URL pattern.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Debugger.Blackbox.List(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerBlackboxApplyPreset(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blackbox_apply_preset",
		Description: "Blackbox the common set of third-party bundles and framework internals (jquery, polyfills, analytics, CDN vendor paths) in one call.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Debugger.Blackbox.ApplyPreset(); err != nil {
			return nil, err
		}
		return map[string]any{"applied": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
