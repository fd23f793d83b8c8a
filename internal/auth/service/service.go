// Package service implements the credential store operations and the
// session lifecycle behind the login cookie.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,SessionStore,PasswordHasher

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"auditflow/internal/auth/models"
	"auditflow/internal/platform/metrics"
	"auditflow/pkg/domain"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
}

// SessionStore persists server-side sessions keyed by token.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// PasswordHasher is a one-way function with verify.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) error
}

// Service owns registration, credential verification and sessions.
type Service struct {
	users      UserStore
	sessions   SessionStore
	hasher     PasswordHasher
	sessionTTL time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	newToken   func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithTokenGenerator replaces the session token source.
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newToken = fn }
}

func New(users UserStore, sessions SessionStore, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: 24 * time.Hour,
		logger:     slog.Default(),
		tracer:     otel.Tracer("auditflow/internal/auth"),
		newToken:   defaultToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}
