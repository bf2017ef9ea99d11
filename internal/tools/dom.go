package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/html"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerDOMTools(srv *mcp.Server) {
	d.registerDOMGetOuterHTML(srv)
	d.registerDOMQuerySelector(srv)
}

type domGetOuterHTMLRequest struct {
	Selector string `json:"selector,omitempty"`
	Pretty   bool   `json:"pretty,omitempty"`
}

func (d *Deps) registerDOMGetOuterHTML(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_get_outer_html",
		Description: "Fetch the outer HTML of the element matched by selector (or the whole document if omitted), optionally reformatted for readability.",
		InputSchema: inputSchema(map[string]any{
			"selector": str("CSS selector; omit for the full document"),
			"pretty":   boolean("reformat the markup with indentation before returning it"),
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*domGetOuterHTMLRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}

		var outerHTML string
		if r.Selector == "" {
			root, err := proto.DOMGetDocument{}.Call(page)
			if err != nil {
				return nil, fmt.Errorf("dom_get_outer_html: %w", err)
			}
			out, err := proto.DOMGetOuterHTML{NodeID: root.Root.NodeID}.Call(page)
			if err != nil {
				return nil, fmt.Errorf("dom_get_outer_html: %w", err)
			}
			outerHTML = out.OuterHTML
		} else {
			el, err := page.Element(r.Selector)
			if err != nil {
				return nil, fmt.Errorf("dom_get_outer_html: element %q: %w", r.Selector, err)
			}
			outerHTML, err = el.HTML()
			if err != nil {
				return nil, fmt.Errorf("dom_get_outer_html: %w", err)
			}
		}

		if r.Pretty {
			if pretty, err := prettyHTML(outerHTML); err == nil {
				outerHTML = pretty
			}
		}
		return d.smartHandle(map[string]any{"html": outerHTML})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[domGetOuterHTMLRequest])
}

type domQuerySelectorRequest struct {
	Selector string `json:"selector"`
	All      bool   `json:"all,omitempty"`
}

func (d *Deps) registerDOMQuerySelector(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_query_selector",
		Description: "Return tag name, attributes, and text content for elements matching a CSS selector; all=true returns every match instead of just the first.",
		InputSchema: inputSchema(map[string]any{
			"selector": str("CSS selector"),
			"all":      boolean("return every match instead of only the first"),
		}, []string{"selector"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*domQuerySelectorRequest)
		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}

		if !r.All {
			el, err := page.Element(r.Selector)
			if err != nil {
				return nil, fmt.Errorf("dom_query_selector: element %q: %w", r.Selector, err)
			}
			summary, err := summarizeElement(el)
			if err != nil {
				return nil, err
			}
			return d.smartHandle([]domElementSummary{summary})
		}

		els, err := page.Elements(r.Selector)
		if err != nil {
			return nil, fmt.Errorf("dom_query_selector: elements %q: %w", r.Selector, err)
		}
		out := make([]domElementSummary, 0, len(els))
		for _, el := range els {
			summary, err := summarizeElement(el)
			if err != nil {
				return nil, err
			}
			out = append(out, summary)
		}
		return d.smartHandle(out)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[domQuerySelectorRequest])
}

type domElementSummary struct {
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text"`
}

type rodElement interface {
	Describe(depth int, pierce bool) (*proto.DOMNode, error)
	Text() (string, error)
}

func summarizeElement(el rodElement) (domElementSummary, error) {
	node, err := el.Describe(1, false)
	if err != nil {
		return domElementSummary{}, fmt.Errorf("dom_query_selector: describe: %w", err)
	}
	text, err := el.Text()
	if err != nil {
		return domElementSummary{}, fmt.Errorf("dom_query_selector: text: %w", err)
	}

	attrs := make(map[string]string, len(node.Attributes)/2)
	for i := 0; i+1 < len(node.Attributes); i += 2 {
		attrs[node.Attributes[i]] = node.Attributes[i+1]
	}
	return domElementSummary{Tag: strings.ToLower(node.NodeName), Attributes: attrs, Text: text}, nil
}

// prettyHTML reparses raw and re-renders it with indentation, the way a
// reverse-engineer would want unminified markup to read.
func prettyHTML(raw string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(raw), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: 0})
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, n := range nodes {
		if err := renderIndented(&buf, n, 0); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func renderIndented(buf *strings.Builder, n *html.Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			buf.WriteString(indent)
			buf.WriteString(text)
			buf.WriteString("\n")
		}
		return nil
	case html.CommentNode:
		return nil
	}

	buf.WriteString(indent)
	buf.WriteString("<")
	buf.WriteString(n.Data)
	for _, a := range n.Attr {
		fmt.Fprintf(buf, " %s=%q", a.Key, a.Val)
	}
	buf.WriteString(">\n")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := renderIndented(buf, c, depth+1); err != nil {
			return err
		}
	}
	buf.WriteString(indent)
	buf.WriteString("</")
	buf.WriteString(n.Data)
	buf.WriteString(">\n")
	return nil
}
