package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/consolemonitor"
	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerConsoleTools(srv *mcp.Server) {
	d.registerConsoleEnable(srv)
	d.registerConsoleDisable(srv)
	d.registerConsoleGetMessages(srv)
	d.registerConsoleGetExceptions(srv)
	d.registerConsoleExecute(srv)
	d.registerConsoleEnableDynamicScriptMonitoring(srv)
	d.registerConsoleInjectXHRInterceptor(srv)
	d.registerConsoleInjectFetchInterceptor(srv)
	d.registerConsoleInjectFunctionTracer(srv)
	d.registerConsoleInjectPropertyWatcher(srv)
}

func (d *Deps) registerConsoleEnable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_enable",
		Description: "Start capturing console messages and thrown exceptions on the active page (spec §4.H).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		session, err := d.Browser.NewSession(ctx, "console")
		if err != nil {
			return nil, err
		}
		if err := d.Console.Enable(session); err != nil {
			return nil, err
		}
		return map[string]any{"enabled": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerConsoleDisable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_disable",
		Description: "Stop capturing console messages and exceptions; idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Console.Disable(); err != nil {
			return nil, err
		}
		return map[string]any{"enabled": false}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type consoleFilterRequest struct {
	Type     string `json:"type,omitempty"`
	URL      string `json:"url,omitempty"`
	SinceISO string `json:"since,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (r *consoleFilterRequest) toFilter() consolemonitor.Filter {
	f := consolemonitor.Filter{Type: r.Type, URL: r.URL, Limit: r.Limit}
	if r.SinceISO != "" {
		if t, err := time.Parse(time.RFC3339, r.SinceISO); err == nil {
			f.Since = t
		}
	}
	return f
}

func (d *Deps) registerConsoleGetMessages(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_get_messages",
		Description: "Return captured console messages, newest last, optionally filtered by type/url/since/limit.",
		InputSchema: inputSchema(map[string]any{
			"type":  str("console API type, e.g. log, warn, error"),
			"url":   str("only messages whose source URL contains this substring"),
			"since": str("RFC3339 timestamp; only messages at or after this time"),
			"limit": integer("cap the number of messages returned (0 = no limit)"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*consoleFilterRequest)
		return d.smartHandle(d.Console.Messages(r.toFilter()))
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[consoleFilterRequest])
}

func (d *Deps) registerConsoleGetExceptions(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_get_exceptions",
		Description: "Return captured thrown exceptions, newest last, optionally filtered by url/since/limit.",
		InputSchema: inputSchema(map[string]any{
			"url":   str("only exceptions whose source URL contains this substring"),
			"since": str("RFC3339 timestamp; only exceptions at or after this time"),
			"limit": integer("cap the number of exceptions returned (0 = no limit)"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*consoleFilterRequest)
		return d.smartHandle(d.Console.Exceptions(r.toFilter()))
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[consoleFilterRequest])
}

type consoleExecuteRequest struct {
	Expression string `json:"expression"`
}

func (d *Deps) registerConsoleExecute(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_execute",
		Description: "Evaluate a JavaScript expression against the page's global context via Runtime.evaluate.",
		InputSchema: inputSchema(map[string]any{"expression": str("JS expression")}, []string{"expression"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*consoleExecuteRequest)
		val, err := d.Console.Execute(r.Expression)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(map[string]any{"value": val})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[consoleExecuteRequest])
}

func (d *Deps) registerConsoleEnableDynamicScriptMonitoring(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_enable_dynamic_script_monitoring",
		Description: "Inject a MutationObserver plus eval/Function/createElement('script') hooks that log dynamically added scripts. Idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Console.EnableDynamicScriptMonitoring(); err != nil {
			return nil, err
		}
		return map[string]any{"injected": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerConsoleInjectXHRInterceptor(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_inject_xhr_interceptor",
		Description: "Wrap XMLHttpRequest.prototype so every request/response is recorded in-page under window.__getXHRRequests(). Idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Console.InjectXHRInterceptor(); err != nil {
			return nil, err
		}
		return map[string]any{"injected": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerConsoleInjectFetchInterceptor(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_inject_fetch_interceptor",
		Description: "Wrap window.fetch in a Proxy that records URL/method/headers/body/status/preview under window.__getFetchRequests(). Idempotent.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := d.Console.InjectFetchInterceptor(); err != nil {
			return nil, err
		}
		return map[string]any{"injected": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type consoleFunctionTracerRequest struct {
	Name string `json:"name"`
}

func (d *Deps) registerConsoleInjectFunctionTracer(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_inject_function_tracer",
		Description: "Replace window[name] with a Proxy that logs every call's arguments, timing, and return value.",
		InputSchema: inputSchema(map[string]any{"name": str("global function name, e.g. window.someObfuscatedFn")}, []string{"name"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*consoleFunctionTracerRequest)
		if err := d.Console.InjectFunctionTracer(r.Name); err != nil {
			return nil, err
		}
		return map[string]any{"injected": r.Name}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[consoleFunctionTracerRequest])
}

type consolePropertyWatcherRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (d *Deps) registerConsoleInjectPropertyWatcher(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "console_inject_property_watcher",
		Description: "Replace a property at path with a getter/setter pair that logs every read and write.",
		InputSchema: inputSchema(map[string]any{
			"path": str("dotted path to the owning object, e.g. window.localStorage"),
			"name": str("property name to watch on that object"),
		}, []string{"path", "name"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*consolePropertyWatcherRequest)
		if err := d.Console.InjectPropertyWatcher(r.Path, r.Name); err != nil {
			return nil, err
		}
		return map[string]any{"injected": r.Path + "." + r.Name}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[consolePropertyWatcherRequest])
}
