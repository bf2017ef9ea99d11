package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DecodeResult holds the decoded request and an optional context
// enrichment hook run before the Endpoint executes.
type DecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// Decoder extracts a typed request from raw MCP tool-call arguments.
type Decoder func(*mcp.CallToolRequest) (*DecodeResult, error)

// RegisterTool registers an Endpoint (already wrapped by whatever
// Middleware chain the caller wants — budget accounting, detail-id
// externalization) as an MCP tool. Handler panics/errors never escape
// to the transport: every outcome becomes a CallToolResult, success or
// isError, per spec §4.A/§7.
func RegisterTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode Decoder) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				res = errorResult(fmt.Errorf("panic in tool %s: %v", tool.Name, r))
			}
		}()

		ctx = WithToolName(ctx, tool.Name)

		decoded, derr := decode(req)
		if derr != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", derr)), nil
		}
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, eerr := endpoint(ctx, decoded.Request)
		if eerr != nil {
			return errorResult(errors.New(eerr.Error())), nil
		}

		data, merr := json.Marshal(resp)
		if merr != nil {
			return errorResult(fmt.Errorf("marshal response: %w", merr)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

// InputSchema builds a JSON-Schema-shaped "object" input spec, the shape
// every tool in this server declares (spec §6).
func InputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
