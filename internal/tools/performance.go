package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerPerformanceTools(srv *mcp.Server) {
	d.registerPerformanceEnable(srv)
	d.registerPerformanceDisable(srv)
	d.registerPerformanceStartProfiling(srv)
	d.registerPerformanceStopProfiling(srv)
	d.registerPerformanceStartCoverage(srv)
	d.registerPerformanceTakeCoverage(srv)
	d.registerPerformanceStopCoverage(srv)
	d.registerPerformanceTakeHeapSnapshot(srv)
}

func (d *Deps) registerPerformanceEnable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_enable",
		Description: "Attach the Performance/Profiler session to the active page (spec §4.J).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		session, err := d.Browser.NewSession(ctx, "performance")
		if err != nil {
			return nil, err
		}
		if err := d.Perf.Enable(session); err != nil {
			return nil, err
		}
		return map[string]any{"enabled": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceDisable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_disable",
		Description: "Detach the Performance/Profiler session; idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Perf.Disable(); err != nil {
			return nil, err
		}
		return map[string]any{"enabled": false}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceStartProfiling(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_start_profiling",
		Description: "Start CPU sampling profiling.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Perf.StartProfiling(); err != nil {
			return nil, err
		}
		return map[string]any{"started": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceStopProfiling(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_stop_profiling",
		Description: "Stop CPU sampling profiling and return the collected call tree.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		nodes, err := d.Perf.StopProfiling()
		if err != nil {
			return nil, err
		}
		return d.smartHandle(nodes)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceStartCoverage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_start_coverage",
		Description: "Start JS precise code coverage collection.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Perf.StartCoverage(); err != nil {
			return nil, err
		}
		return map[string]any{"started": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceTakeCoverage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_take_coverage",
		Description: "Snapshot coverage ranges collected so far without stopping collection.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		ranges, err := d.Perf.TakeCoverage()
		if err != nil {
			return nil, err
		}
		return d.smartHandle(ranges)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceStopCoverage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_stop_coverage",
		Description: "Stop JS coverage collection and return the final ranges.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		ranges, err := d.Perf.StopCoverage()
		if err != nil {
			return nil, err
		}
		return d.smartHandle(ranges)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerPerformanceTakeHeapSnapshot(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "performance_take_heap_snapshot",
		Description: "Capture a heap snapshot and return it (subject to Detail-ID externalization for large snapshots).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		snap, err := d.Perf.TakeHeapSnapshot()
		if err != nil {
			return nil, err
		}
		return d.smartHandle(snap)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
