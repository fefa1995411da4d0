// Package requestcontext carries the request id and the request clock from
// HTTP middleware down to services that must not import net/http.
//
// Tests pin both values directly:
//
//	ctx = requestcontext.WithTime(requestcontext.WithRequestID(ctx, "req-1"), fixed)
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	requestIDKey key = iota
	requestTimeKey
)

// WithRequestID stores the correlation id for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the correlation id, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTime fixes the clock for everything handled under ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

// Now returns the request time so one request stamps every record with the
// same instant. Outside a request it falls back to the wall clock in UTC.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}
