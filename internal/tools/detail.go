package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerDetailTools(srv *mcp.Server) {
	d.registerGetDetailedData(srv)
}

type getDetailedDataRequest struct {
	DetailID string `json:"detailId"`
	Path     string `json:"path,omitempty"`
}

func (d *Deps) registerGetDetailedData(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "get_detailed_data",
		Description: "Retrieve the full payload an earlier tool call externalized behind a detailId, optionally narrowed to a dot-separated path. Fetching a handle with under 5 minutes left extends its TTL (spec §4.C).",
		InputSchema: inputSchema(map[string]any{
			"detailId": str("detailId from a prior tool response"),
			"path":     str("optional dot-separated path into the stored payload"),
		}, []string{"detailId"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getDetailedDataRequest)
		data, err := d.Detail.Retrieve(r.DetailID, r.Path)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[getDetailedDataRequest])
}
