package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/requestcontext"
)

type stubResolver struct {
	identity domain.Identity
	err      error
	gotToken string
}

func (s *stubResolver) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	s.gotToken = token
	return s.identity, s.err
}

const cookieName = "audit_session"

func newGate(resolver SessionResolver) (http.Handler, *domain.Identity) {
	var seen domain.Identity
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireSession(resolver, cookieName, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestcontext.Identity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestRequireSession(t *testing.T) {
	t.Run("missing cookie returns 401", func(t *testing.T) {
		h, _ := newGate(&stubResolver{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown session returns 401", func(t *testing.T) {
		h, _ := newGate(&stubResolver{err: dErrors.New(dErrors.CodeUnauthorized, "session expired")})
		req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "stale"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		h, _ := newGate(&stubResolver{err: dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "lookup failed")})
		req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "tok"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("live session passes identity downstream", func(t *testing.T) {
		want := domain.Identity{ID: 3, Username: "alice", Role: domain.RoleUser}
		resolver := &stubResolver{identity: want}
		h, seen := newGate(resolver)
		req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "tok-123"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "tok-123", resolver.gotToken)
		assert.Equal(t, want, *seen)
	})
}
