package tools

import (
	"context"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerCacheTools(srv *mcp.Server) {
	d.registerGetCacheStats(srv)
	d.registerCacheSmartCleanup(srv)
}

func (d *Deps) registerGetCacheStats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "get_cache_stats",
		Description: "Report every registered cache's entry count, byte footprint, and hit rate, plus the process-wide aggregate (spec §4.D).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Caches.Stats())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type cacheSmartCleanupRequest struct {
	TargetBytes int64 `json:"targetBytes,omitempty"`
}

func (d *Deps) registerCacheSmartCleanup(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cache_smart_cleanup",
		Description: "Run the three-phase cache cleanup (cleanup expired entries, clear low-hit-rate caches, clear the two largest caches) until targetBytes is freed or every phase is exhausted.",
		InputSchema: inputSchema(map[string]any{"targetBytes": integer("bytes to try to free; 0 runs every phase unconditionally")}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*cacheSmartCleanupRequest)
		target := r.TargetBytes
		if target <= 0 {
			target = math.MaxInt64
		}
		freed := d.Caches.SmartCleanup(target)
		return map[string]any{"bytesFreed": freed}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[cacheSmartCleanupRequest])
}
