package testutil

import (
	"context"
	"net/http"
	"time"

	"claimdesk/pkg/requestcontext"
)

// RequestContext returns a context carrying the values the HTTP middleware
// would set: a request id and a fixed request time.
func RequestContext(requestID string, now time.Time) context.Context {
	ctx := requestcontext.WithRequestID(context.Background(), requestID)
	return requestcontext.WithTime(ctx, now)
}

// WithRequestContext applies RequestContext values to req.
func WithRequestContext(req *http.Request, requestID string, now time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(requestcontext.WithTime(ctx, now))
}
