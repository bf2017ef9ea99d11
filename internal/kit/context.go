package kit

import "context"

type contextKey string

const (
	toolNameKey contextKey = "kit_tool_name"
	callIDKey   contextKey = "kit_call_id"
)

// WithToolName attaches the dispatched tool's name to ctx, so nested
// subsystems (budget accounting, audit logs) can attribute work without
// threading an extra parameter through every call.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey, name)
}

// ToolName returns the tool name attached by WithToolName, or "" if none.
func ToolName(ctx context.Context) string {
	v, _ := ctx.Value(toolNameKey).(string)
	return v
}

// WithCallID attaches a per-call correlation id to ctx.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}

// CallID returns the call id attached by WithCallID, or "" if none.
func CallID(ctx context.Context) string {
	v, _ := ctx.Value(callIDKey).(string)
	return v
}
