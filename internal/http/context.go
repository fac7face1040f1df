package http

import (
	"context"

	"traderesearch/app/internal/auth"
)

type contextKey string

const (
	requestIDContextKey    contextKey = "traderesearch/request-id"
	identityContextKey     contextKey = "traderesearch/identity"
	sessionTokenContextKey contextKey = "traderesearch/session-token"
)

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

func withSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}

// sessionTokenFromContext returns the raw session token, or "".
func sessionTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(sessionTokenContextKey).(string); ok {
		return token
	}
	return ""
}

// RequestIDFromContext returns the request id attached by the middleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// identityFromContext returns the resolved identity, or nil when anonymous.
func identityFromContext(ctx context.Context) *auth.Identity {
	if ident, ok := ctx.Value(identityContextKey).(*auth.Identity); ok {
		return ident
	}
	return nil
}

func withIdentity(ctx context.Context, ident *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}
