package tools

import (
	"encoding/base64"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
)

// encodeBase64 is the shared binary-to-JSON bridge for screenshot and
// heap-snapshot style payloads.
func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// inputSchema builds a JSON Schema object with type "object", lifted
// verbatim from domkeeper/mcp.go's helper of the same shape.
func inputSchema(properties map[string]any, required []string) map[string]any {
	return kit.InputSchema(properties, required)
}

// str is the common "type":"string" property shape, optionally with a
// description.
func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strEnum(desc string, values ...string) map[string]any {
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	return map[string]any{"type": "string", "description": desc, "enum": anyValues}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func stringArray(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

// decodeJSON builds a kit.Decoder that unmarshals raw MCP arguments into
// a fresh *T.
func decodeJSON[T any](req *mcp.CallToolRequest) (*kit.DecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.DecodeResult{Request: &r}, nil
}
