package testutil

import (
	"context"
	"net/http"

	"auditflow/pkg/domain"
	"auditflow/pkg/requestcontext"
)

// WithIdentity adds an authenticated identity to the request context.
// This simulates what the session gate would do for authenticated requests.
func WithIdentity(req *http.Request, identity domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), identity))
}

// WithSession adds both identity and session token to the request context.
// This is the typical state for an authenticated request.
func WithSession(req *http.Request, identity domain.Identity, token string) *http.Request {
	ctx := requestcontext.WithIdentity(req.Context(), identity)
	ctx = requestcontext.WithSessionToken(ctx, token)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
