package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerNetworkTools(srv *mcp.Server) {
	d.registerNetworkEnable(srv)
	d.registerNetworkDisable(srv)
	d.registerNetworkGetRequests(srv)
	d.registerNetworkGetResponses(srv)
	d.registerNetworkGetResponseBody(srv)
	d.registerNetworkGetJavaScriptResponses(srv)
}

func (d *Deps) registerNetworkEnable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_enable",
		Description: "Start recording requests and responses on the active page (spec §4.G). Also enables the Console Monitor if it isn't already.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		session, err := d.Browser.NewSession(ctx, "network")
		if err != nil {
			return nil, err
		}
		if err := d.Network.Enable(session); err != nil {
			return nil, err
		}
		if !d.Console.Enabled() {
			if cs, err := d.Browser.NewSession(ctx, "console"); err == nil {
				_ = d.Console.Enable(cs)
			}
		}
		return map[string]any{"enabled": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerNetworkDisable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_disable",
		Description: "Stop recording requests and responses; idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Network.Disable(); err != nil {
			return nil, err
		}
		return map[string]any{"enabled": false}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type networkGetRequestsRequest struct {
	URLContains string `json:"urlContains,omitempty"`
	Method      string `json:"method,omitempty"`
}

func (d *Deps) registerNetworkGetRequests(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_get_requests",
		Description: "List captured requests, optionally filtered by URL substring and/or method.",
		InputSchema: inputSchema(map[string]any{
			"urlContains": str("only requests whose URL contains this substring"),
			"method":      str("only requests with this HTTP method"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*networkGetRequestsRequest)
		return d.smartHandle(d.Network.Requests(r.URLContains, r.Method))
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[networkGetRequestsRequest])
}

func (d *Deps) registerNetworkGetResponses(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_get_responses",
		Description: "List every captured response, oldest first.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Network.Responses())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type networkGetResponseBodyRequest struct {
	RequestID string `json:"requestId"`
}

func (d *Deps) registerNetworkGetResponseBody(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_get_response_body",
		Description: "Fetch a response body by requestId. Returns null (not an error) if monitoring is off, the request is unknown, or the response hasn't arrived yet.",
		InputSchema: inputSchema(map[string]any{"requestId": str("request id from network_get_requests")}, []string{"requestId"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*networkGetResponseBodyRequest)
		body, err := d.Network.ResponseBody(r.RequestID)
		if err != nil {
			return nil, err
		}
		if body == nil {
			return nil, nil
		}
		return d.smartHandle(body)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[networkGetResponseBodyRequest])
}

func (d *Deps) registerNetworkGetJavaScriptResponses(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "network_get_javascript_responses",
		Description: "Fetch the body of every captured response that looks like JavaScript (mime type or .js URL). Idempotent; safe to call repeatedly as new scripts load.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		out, err := d.Network.AllJavaScriptResponses()
		if err != nil {
			return nil, err
		}
		return d.smartHandle(out)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}
