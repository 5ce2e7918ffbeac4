package access

import "context"

type ctxKey string

const ctxKeyRequestID ctxKey = "access_request_id"

// HeaderRequestID carries the caller's correlation ID to the backend.
const HeaderRequestID = "X-Request-ID"

// WithRequestID stores a correlation ID that is sent with the next requests
// made under ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the correlation ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
