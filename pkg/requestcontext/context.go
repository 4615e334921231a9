// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values
// that are typically set by middleware but consumed by services. By keeping
// this package free of net/http dependencies, services can import only what
// they need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	sessionID := requestcontext.SessionID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSessionID(ctx, sid)
//	ctx = requestcontext.WithTime(ctx, time.Now())
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "marlin/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	sessionIDKey   struct{}
	contactIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySessionID   = sessionIDKey{}
	ContextKeyContactID   = contactIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// SessionID retrieves the browser session identifier from the context.
// Returns "" if not set.
func SessionID(ctx context.Context) string {
	if sid, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return sid
	}
	return ""
}

// WithSessionID injects a session identifier into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// ContactID retrieves the authenticated contact ID from the context.
// Returns the zero value (nil UUID) if not set.
func ContactID(ctx context.Context) id.ContactID {
	if cid, ok := ctx.Value(ContextKeyContactID).(id.ContactID); ok {
		return cid
	}
	return id.ContactID{}
}

// WithContactID injects a contact ID into the context.
func WithContactID(ctx context.Context, contactID id.ContactID) context.Context {
	return context.WithValue(ctx, ContextKeyContactID, contactID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers,
// CLI, tests). Date validation reads "today" through this so a whole request
// sees one consistent clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
