package kit

import "context"

// Endpoint is the transport-agnostic shape every tool handler reduces to:
// a typed request in, a JSON-marshalable response or error out.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior (token budget
// accounting, logging, recovery) without the handler itself knowing it
// is wrapped.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first one listed runs outermost —
// Chain(a, b, c)(endpoint) executes a_before, b_before, c_before,
// endpoint, c_after, b_after, a_after.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
