package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"auditflow/internal/auth/models"
	"auditflow/internal/auth/password"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/requestcontext"
)

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZoLGqBvYKVFHICIxSKeRQe"

var errInvalidCredentials = dErrors.New(dErrors.CodeInvalidCredentials, "Invalid credentials")

// Register validates req, stores a hash of the password and returns the new
// user's identifier.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (domain.UserID, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer span.End()

	if err := req.Validate(); err != nil {
		return 0, err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return 0, err
	}
	user, err := s.CreateUser(ctx, req.Username, req.Password, role)
	if err != nil {
		span.SetStatus(codes.Error, "register failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)), attribute.String("user.role", string(role)))
	return user.ID, nil
}

// CreateUser hashes secret and persists the account. A username that is
// already taken, with any role, is a conflict.
func (s *Service) CreateUser(ctx context.Context, username, secret string, role domain.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Username already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersCreated(string(role))
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// Verify checks username and secret and returns the public identity. The
// error is identical whether the username or the secret was wrong.
func (s *Service) Verify(ctx context.Context, username, secret string) (domain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Verify")
	defer span.End()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = s.hasher.Verify(secret, dummyHash)
			return domain.Identity{}, errInvalidCredentials
		}
		span.RecordError(err)
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.hasher.Verify(secret, user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return domain.Identity{}, errInvalidCredentials
		}
		span.RecordError(err)
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	return user.Identity(), nil
}

// EnsureUser creates the account unless the username already exists.
// It reports whether a new account was created.
func (s *Service) EnsureUser(ctx context.Context, username, secret string, role domain.Role) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if _, err := s.CreateUser(ctx, username, secret, role); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DefaultUser is an account created on first start.
type DefaultUser struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultUsers are seeded so a fresh install has one account per role.
var DefaultUsers = []DefaultUser{
	{Username: "auditor", Password: "auditor123", Role: domain.RoleAuditor},
	{Username: "user", Password: "user123", Role: domain.RoleUser},
}

// SeedDefaultUsers ensures every DefaultUsers entry exists.
func (s *Service) SeedDefaultUsers(ctx context.Context) error {
	for _, u := range DefaultUsers {
		created, err := s.EnsureUser(ctx, u.Username, u.Password, u.Role)
		if err != nil {
			return err
		}
		if created {
			s.logger.InfoContext(ctx, "seeded user", "username", u.Username, "role", u.Role)
		}
	}
	return nil
}
