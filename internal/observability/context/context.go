package context

import "context"

type requestIDKey struct{}
type claimIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClaimID tags the context with the claim currently being processed.
func WithClaimID(ctx context.Context, claimID string) context.Context {
	if claimID == "" {
		return ctx
	}
	return context.WithValue(ctx, claimIDKey{}, claimID)
}

func ClaimIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(claimIDKey{}).(string); ok {
		return v
	}
	return ""
}
