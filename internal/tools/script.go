package tools

import (
	"context"

	"github.com/go-rod/rod/lib/proto"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/errs"
	"github.com/brennhill/revagent/internal/kit"
	"github.com/brennhill/revagent/internal/scriptcatalog"
)

func (d *Deps) registerScriptTools(srv *mcp.Server) {
	d.registerScriptEnable(srv)
	d.registerScriptGetSource(srv)
	d.registerScriptList(srv)
	d.registerScriptStats(srv)
	d.registerScriptClear(srv)
	d.registerScriptSearch(srv)
	d.registerScriptExtractFunctionTree(srv)
}

func (d *Deps) registerScriptEnable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_enable",
		Description: "Start cataloging every script the page's debugger parses (spec §4.F). Requires a debugger session; enables one if none is active.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		session, err := d.Browser.NewSession(ctx, "script-catalog")
		if err != nil {
			return nil, err
		}
		d.Scripts.Start(session)
		if _, err := (proto.DebuggerEnable{}).Call(session.Page()); err != nil {
			return nil, &errs.RemoteFailure{Command: "Debugger.enable", Cause: err}
		}
		return map[string]any{"enabled": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type scriptGetSourceRequest struct {
	ScriptID string `json:"scriptId,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (d *Deps) registerScriptGetSource(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_get_source",
		Description: "Fetch (and cache) a parsed script's full source by scriptId or url. Either may be given; scriptId takes priority.",
		InputSchema: inputSchema(map[string]any{
			"scriptId": str("script id from script_list"),
			"url":      str("script url, mutually exclusive with scriptId"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*scriptGetSourceRequest)
		ps, err := d.Scripts.GetScriptSource(r.ScriptID, r.URL)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(ps)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[scriptGetSourceRequest])
}

func (d *Deps) registerScriptList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_list",
		Description: "List every script observed so far (metadata only; call script_get_source for the body).",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.smartHandle(d.Scripts.List())
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerScriptStats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_stats",
		Description: "Report catalog size: script count, chunk count, indexed identifier count, and how many scripts have their source fetched.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return d.Scripts.StatsReport(), nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

func (d *Deps) registerScriptClear(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_clear",
		Description: "Discard every cataloged script, chunk, and identifier index entry.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		d.Scripts.Clear()
		return map[string]any{"cleared": true}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type scriptSearchRequest struct {
	Keyword       string `json:"keyword"`
	IsRegex       bool   `json:"isRegex,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	ContextLines  int    `json:"contextLines,omitempty"`
	MaxMatches    int    `json:"maxMatches,omitempty"`
}

func (d *Deps) registerScriptSearch(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_search",
		Description: "Search every cataloged script's source for keyword, literal or regex, returning matches with surrounding context lines.",
		InputSchema: inputSchema(map[string]any{
			"keyword":       str("search text, literal or regular expression"),
			"isRegex":       boolean("treat keyword as a regular expression"),
			"caseSensitive": boolean("match case exactly (default false); regex searches only, literal searches always ignore case"),
			"contextLines":  integer("lines of context around each match (default 3)"),
			"maxMatches":    integer("cap the number of matches returned (default 100)"),
		}, []string{"keyword"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*scriptSearchRequest)
		matches, err := d.Scripts.Search(r.Keyword, scriptcatalog.SearchOptions{
			IsRegex:       r.IsRegex,
			CaseSensitive: r.CaseSensitive,
			ContextLines:  r.ContextLines,
			MaxMatches:    r.MaxMatches,
		})
		if err != nil {
			return nil, err
		}
		return d.smartHandle(matches)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[scriptSearchRequest])
}

type scriptExtractFunctionTreeRequest struct {
	ScriptID        string `json:"scriptId,omitempty"`
	URL             string `json:"url,omitempty"`
	FunctionName    string `json:"functionName"`
	MaxDepth        int    `json:"maxDepth,omitempty"`
	MaxSizeKB       int    `json:"maxSizeKb,omitempty"`
	IncludeComments bool   `json:"includeComments,omitempty"`
}

func (d *Deps) registerScriptExtractFunctionTree(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "script_extract_function_tree",
		Description: "Parse a script's source and BFS-walk its call graph from functionName, returning each reachable function's source and the discovered call graph.",
		InputSchema: inputSchema(map[string]any{
			"scriptId":        str("script id from script_list"),
			"url":             str("script url, mutually exclusive with scriptId"),
			"functionName":    str("root function identifier to start the walk from"),
			"maxDepth":        integer("call graph depth to walk (default 3)"),
			"maxSizeKb":       integer("flag the result as oversized when it exceeds this size in KiB (default 256); the result is not truncated"),
			"includeComments": boolean("retain comments in extracted function source"),
		}, []string{"functionName"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*scriptExtractFunctionTreeRequest)
		tree, err := d.Scripts.ExtractFunctionTree(r.ScriptID, r.URL, r.FunctionName, scriptcatalog.FunctionTreeOptions{
			MaxDepth:        r.MaxDepth,
			MaxSizeKB:       r.MaxSizeKB,
			IncludeComments: r.IncludeComments,
		})
		if err != nil {
			return nil, err
		}
		return d.smartHandle(tree)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[scriptExtractFunctionTreeRequest])
}
