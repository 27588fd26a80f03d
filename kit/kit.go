// Package kit is the transport-agnostic endpoint layer: operations are
// exposed as Endpoints, and adapters (HTTP, MCP) decode their wire
// format into the endpoint's request type.
package kit

import "context"

// Endpoint is one operation, independent of transport. Requests and
// responses are plain structs; adapters own (de)serialisation.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middleware outermost-first: Chain(a, b)(e) runs a,
// then b, then e.
func Chain(mw ...Middleware) Middleware {
	return func(e Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			e = mw[i](e)
		}
		return e
	}
}
