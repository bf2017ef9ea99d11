package tools

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerPageTools(srv *mcp.Server) {
	d.registerPageNavigate(srv)
	d.registerPageInfo(srv)
	d.registerPageEvaluate(srv)
	d.registerPageClick(srv)
	d.registerPageType(srv)
	d.registerPageScreenshot(srv)
}

type pageNavigateRequest struct {
	URL string `json:"url"`
}

func (d *Deps) registerPageNavigate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_navigate",
		Description: "Navigate the active page to url, opening one if needed, and wait for load.",
		InputSchema: inputSchema(map[string]any{"url": str("destination URL")}, []string{"url"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pageNavigateRequest)
		page, err := d.Browser.Navigate(r.URL)
		if err != nil {
			return nil, err
		}
		info, err := page.Info()
		if err != nil {
			return nil, fmt.Errorf("page_navigate: %w", err)
		}
		return map[string]any{"url": info.URL, "title": info.Title}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[pageNavigateRequest])
}

func (d *Deps) registerPageInfo(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_get_info",
		Description: "Return the active page's current URL and title.",
		InputSchema: inputSchema(nil, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		info, err := page.Info()
		if err != nil {
			return nil, fmt.Errorf("page_get_info: %w", err)
		}
		return map[string]any{"url": info.URL, "title": info.Title}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[struct{}])
}

type pageEvaluateRequest struct {
	Expression string `json:"expression"`
}

func (d *Deps) registerPageEvaluate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_evaluate",
		Description: "Evaluate a JavaScript expression on the active page and return its value.",
		InputSchema: inputSchema(map[string]any{"expression": str("JS expression")}, []string{"expression"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pageEvaluateRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		res, err := (proto.RuntimeEvaluate{Expression: r.Expression, ReturnByValue: true}).Call(page)
		if err != nil {
			return nil, fmt.Errorf("page_evaluate: %w", err)
		}
		if res.ExceptionDetails != nil {
			return nil, fmt.Errorf("page_evaluate: threw: %s", res.ExceptionDetails.Text)
		}
		if res.Result != nil && res.Result.Value != nil {
			return res.Result.Value.Val(), nil
		}
		return nil, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[pageEvaluateRequest])
}

type pageClickRequest struct {
	Selector string `json:"selector"`
}

func (d *Deps) registerPageClick(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_click",
		Description: "Click the first element matching a CSS selector.",
		InputSchema: inputSchema(map[string]any{"selector": str("CSS selector")}, []string{"selector"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pageClickRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		el, err := page.Element(r.Selector)
		if err != nil {
			return nil, fmt.Errorf("page_click: element %q: %w", r.Selector, err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return nil, fmt.Errorf("page_click: %w", err)
		}
		return map[string]any{"clicked": r.Selector}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[pageClickRequest])
}

type pageTypeRequest struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

func (d *Deps) registerPageType(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_type",
		Description: "Type text into the first element matching a CSS selector.",
		InputSchema: inputSchema(map[string]any{
			"selector": str("CSS selector"),
			"text":     str("text to type"),
		}, []string{"selector", "text"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pageTypeRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		el, err := page.Element(r.Selector)
		if err != nil {
			return nil, fmt.Errorf("page_type: element %q: %w", r.Selector, err)
		}
		if err := el.Input(r.Text); err != nil {
			return nil, fmt.Errorf("page_type: %w", err)
		}
		return map[string]any{"typed": r.Selector}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[pageTypeRequest])
}

type pageScreenshotRequest struct {
	FullPage bool `json:"fullPage,omitempty"`
}

func (d *Deps) registerPageScreenshot(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_screenshot",
		Description: "Capture a PNG screenshot of the active page, base64-encoded.",
		InputSchema: inputSchema(map[string]any{"fullPage": boolean("capture the full scrollable page, not just the viewport")}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pageScreenshotRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}
		data, err := page.Screenshot(r.FullPage, nil)
		if err != nil {
			return nil, fmt.Errorf("page_screenshot: %w", err)
		}
		return d.smartHandle(map[string]any{"format": "png", "base64": encodeBase64(data)})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[pageScreenshotRequest])
}
