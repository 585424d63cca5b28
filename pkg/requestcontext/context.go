// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
//
//	scope := requestcontext.DeviceID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithDeviceID(ctx, "device-1")
package requestcontext

import (
	"context"
	"time"
)

type (
	deviceIDKey    struct{}
	deviceNewKey   struct{}
	principalKey   struct{}
	bearerTokenKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	refererKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Principal is the back-office identity handed over by the identity provider.
type Principal struct {
	UserID          string
	Role            string
	DataFiduciaryID string
}

// -----------------------------------------------------------------------------
// Device scope
// -----------------------------------------------------------------------------

// DeviceID returns the device identifier that scopes durable client storage.
func DeviceID(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// DeviceIssued reports whether the device id was minted for this request
// because the client sent no usable cookie.
func DeviceIssued(ctx context.Context) bool {
	v, _ := ctx.Value(deviceNewKey{}).(bool)
	return v
}

func WithDeviceIssued(ctx context.Context) context.Context {
	return context.WithValue(ctx, deviceNewKey{}, true)
}

// -----------------------------------------------------------------------------
// Back-office auth
// -----------------------------------------------------------------------------

// PrincipalFrom returns the authenticated back-office principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// BearerToken returns the raw token the caller authenticated with so it can be
// forwarded to the backend API.
func BearerToken(ctx context.Context) string {
	if v, ok := ctx.Value(bearerTokenKey{}).(string); ok {
		return v
	}
	return ""
}

func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, Referer)
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// Referer is the page the citizen arrived from, when the browser sent one.
func Referer(ctx context.Context) string {
	if v, ok := ctx.Value(refererKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata injects client IP, User-Agent and Referer into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, referer string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	ctx = context.WithValue(ctx, refererKey{}, referer)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
