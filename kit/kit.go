// Package kit holds transport-agnostic endpoint plumbing shared by the
// editor's MCP surface.
package kit

import "context"

// Endpoint is a transport-agnostic request handler. Transports decode their
// wire format into a typed request, invoke the endpoint, and encode the
// response.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

const (
	// TransportKey records which transport a request arrived on
	// ("mcp", "ws", "local").
	TransportKey contextKey = "kit_transport"
	// RequestIDKey carries the correlation id of the current request.
	RequestIDKey contextKey = "kit_request_id"
)

// WithTransport tags a context with its originating transport.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// GetTransport returns the transport tag, defaulting to "local".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "local"
}

// WithRequestID tags a context with a correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the correlation id, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}
