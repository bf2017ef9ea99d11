package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerBrowserTools(srv *mcp.Server) {
	d.registerBrowserLaunch(srv)
	d.registerBrowserStatus(srv)
	d.registerBrowserClose(srv)
}

type browserLaunchRequest struct {
	Headless bool `json:"headless,omitempty"`
	Stealth  bool `json:"stealth,omitempty"`
}

func (d *Deps) registerBrowserLaunch(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_launch",
		Description: "Launch (or attach to) the Chrome instance backing this session. Idempotent.",
		InputSchema: inputSchema(map[string]any{
			"headless": boolean("accepted but not applied; headless mode comes from PUPPETEER_HEADLESS at startup"),
			"stealth":  boolean("accepted but not applied; stealth patching comes from the startup configuration"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if _, err := d.Browser.Start(ctx); err != nil {
			return nil, err
		}
		return d.Browser.Status(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[browserLaunchRequest])
}

func (d *Deps) registerBrowserStatus(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_status",
		Description: "Report whether Chrome is running and the active page's URL.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Browser.Status(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerBrowserClose(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_close",
		Description: "Disable the Debugger, Network Recorder and Console Monitor, then tear down the browser.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		_ = d.Debugger.Disable()
		_ = d.Network.Disable()
		_ = d.Console.Disable()
		if err := d.Browser.Close(); err != nil {
			return nil, fmt.Errorf("browser_close: %w", err)
		}
		return map[string]any{"closed": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
