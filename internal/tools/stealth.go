package tools

import (
	"context"
	"fmt"

	"github.com/go-rod/stealth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerStealthTools(srv *mcp.Server) {
	d.registerStealthApply(srv)
}

func (d *Deps) registerStealthApply(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "stealth_apply",
		Description: "Re-apply go-rod/stealth's anti-fingerprint patches (navigator.webdriver, plugin/mimeType shims, chrome.runtime stub, permissions query override) to the active page on demand.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		if err := stealth.Page(page); err != nil {
			return nil, fmt.Errorf("stealth_apply: %w", err)
		}
		return map[string]any{"applied": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
