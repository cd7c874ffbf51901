package authclient

import "context"

type requestIDKey struct{}

// WithRequestID sets the correlation ID the pipeline sends for calls made
// with ctx. Without it each logical call gets a fresh UUID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the ID set by [WithRequestID] or by the
// pipeline for the call in progress.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
