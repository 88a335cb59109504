// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// Middleware sets values; services read them. Keeping this package free of
// net/http means the custody engine can learn who the caller is without
// importing transport code, and tests can inject a caller directly:
//
//	ctx = requestcontext.WithParticipant(ctx, p)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"krishichain/pkg/domain"
)

// Participant is the authenticated caller as seen by services. It is a
// deliberate subset of the identity model: services only need who the caller
// is and what role they hold.
type Participant struct {
	ID       domain.ParticipantID
	Username string
	Role     domain.Role
}

// Context key types (unexported for encapsulation).
type (
	participantKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithParticipant injects the authenticated participant into the context.
func WithParticipant(ctx context.Context, p Participant) context.Context {
	return context.WithValue(ctx, participantKey{}, p)
}

// CurrentParticipant retrieves the authenticated participant, if any.
func CurrentParticipant(ctx context.Context) (Participant, bool) {
	p, ok := ctx.Value(participantKey{}).(Participant)
	return p, ok
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID retrieves the request ID from the context, or "" when unset.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the middleware chain, and for workers that need a
// consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now retrieves the request-scoped time, falling back to time.Now for
// non-HTTP contexts such as workers and CLI commands.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
