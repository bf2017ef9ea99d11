package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerBudgetTools(srv *mcp.Server) {
	d.registerGetBudgetStats(srv)
	d.registerManualCleanup(srv)
	d.registerResetTokenBudget(srv)
}

func (d *Deps) registerGetBudgetStats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "get_budget_stats",
		Description: "Report current token budget usage, its ratio of the 200,000-token max, and recent accounted tool calls (spec §4.B).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		snap, history := d.Budget.Stats()
		return d.smartHandle(map[string]any{"snapshot": snap, "history": history})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerManualCleanup(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "manual_cleanup",
		Description: "Run the automatic 90%-threshold cleanup sequence immediately, regardless of current usage.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Budget.ManualCleanup(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerResetTokenBudget(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "reset_token_budget",
		Description: "Clear all token budget accounting state, including triggered-threshold memory. The only way to re-arm a threshold warning short of the ratio dropping on its own.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		d.Budget.Reset()
		return map[string]any{"reset": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
