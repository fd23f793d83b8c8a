package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mssola/useragent"

	"auditflow/internal/auth/models"
	"auditflow/internal/auth/password"
	"auditflow/internal/auth/store/session"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/requestcontext"
)

func defaultToken() (string, error) {
	return password.GenerateToken()
}

// Login verifies credentials and opens a session with a fixed absolute
// lifetime.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	identity, err := s.Verify(ctx, req.Username, req.Password)
	if err != nil {
		s.recordLogin("failure")
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			s.logger.WarnContext(ctx, "login failed",
				"client_ip", requestcontext.ClientIP(ctx),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	now := requestcontext.Now(ctx)
	sess := &models.Session{
		Token:     token,
		Identity:  identity,
		Device:    deviceLabel(requestcontext.UserAgent(ctx)),
		ClientIP:  requestcontext.ClientIP(ctx),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.recordLogin("success")
	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", identity.ID,
		"device", sess.Device,
		"session", session.LogRef(token),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.LoginResult{Identity: identity, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate resolves a session token to its identity.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	sess, err := s.sessions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
		}
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	return sess.Identity, nil
}

// Logout destroys the session. An empty or unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Could not log out")
	}
	if s.metrics != nil {
		s.metrics.IncrementLogout()
	}
	s.logger.InfoContext(ctx, "session ended",
		"session", session.LogRef(token),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(result)
	}
}

// deviceLabel renders a short "Browser on OS" description of a User-Agent.
func deviceLabel(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	os := parsed.OS()
	switch {
	case browser != "" && os != "":
		return fmt.Sprintf("%s on %s", browser, os)
	case browser != "":
		return browser
	default:
		return ua
	}
}
