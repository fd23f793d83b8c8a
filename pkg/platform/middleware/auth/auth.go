// Package auth is the session gate: it maps the session cookie on an inbound
// request to an authenticated identity, or rejects the request with 401.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/httputil"
	"auditflow/pkg/requestcontext"
)

// SessionResolver resolves an opaque session token to the identity it was
// issued for.
type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// RequireSession rejects requests without a live session. On success the
// identity and token are placed on the request context.
func RequireSession(resolver SessionResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				logger.DebugContext(ctx, "unauthorized access - missing session cookie",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
				return
			}

			identity, err := resolver.Authenticate(ctx, cookie.Value)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid session",
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
					return
				}
				logger.ErrorContext(ctx, "failed to resolve session",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithIdentity(ctx, identity)
			ctx = requestcontext.WithSessionToken(ctx, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
