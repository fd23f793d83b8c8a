package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"auditflow/internal/auth/models"
	"auditflow/internal/auth/password"
	"auditflow/internal/auth/service/mocks"
	"auditflow/internal/platform/metrics"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockUsers    *mocks.MockUserStore
	mockSessions *mocks.MockSessionStore
	mockHasher   *mocks.MockPasswordHasher
	metrics      *metrics.Metrics
	service      *Service
	now          time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUsers = mocks.NewMockUserStore(s.ctrl)
	s.mockSessions = mocks.NewMockSessionStore(s.ctrl)
	s.mockHasher = mocks.NewMockPasswordHasher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	s.service = New(s.mockUsers, s.mockSessions, s.mockHasher,
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSessionTTL(24*time.Hour),
		WithTokenGenerator(func() (string, error) { return "fixed-token", nil }),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestRegister() {
	s.Run("valid registration stores hash and returns id", func() {
		s.mockHasher.EXPECT().Hash("secret1").Return("$hash$", nil)
		s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				s.Equal("alice", u.Username)
				s.Equal("$hash$", u.PasswordHash)
				s.Equal(domain.RoleUser, u.Role)
				s.Equal(s.now, u.CreatedAt)
				u.ID = 5
				return nil
			})

		id, err := s.service.Register(s.ctx(), &models.RegisterRequest{Username: "alice", Password: "secret1", Role: "USER"})
		s.Require().NoError(err)
		s.Equal(domain.UserID(5), id)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.UsersCreated.WithLabelValues("USER")))
	})

	s.Run("invalid input never reaches storage", func() {
		cases := []models.RegisterRequest{
			{Username: "al", Password: "secret1", Role: "USER"},
			{Username: "alice!", Password: "secret1", Role: "USER"},
			{Username: "alice", Password: "12345", Role: "USER"},
			{Username: "alice", Password: "secret1", Role: "ADMIN"},
			{Username: "abcdefghijklmnopqrstuvwxyz12345", Password: "secret1", Role: "USER"},
		}
		for _, req := range cases {
			_, err := s.service.Register(s.ctx(), &req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%+v", req)
		}
	})

	s.Run("duplicate username is a conflict", func() {
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("$hash$", nil)
		s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.Register(s.ctx(), &models.RegisterRequest{Username: "alice", Password: "secret1", Role: "AUDITOR"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("Username already taken", err.Error())
	})

	s.Run("store failure is internal", func() {
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("$hash$", nil)
		s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)

		_, err := s.service.Register(s.ctx(), &models.RegisterRequest{Username: "alice", Password: "secret1", Role: "USER"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestVerify() {
	stored := &models.User{ID: 9, Username: "bob", PasswordHash: "$bob$", Role: domain.RoleAuditor}

	s.Run("correct secret returns identity", func() {
		s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "bob").Return(stored, nil)
		s.mockHasher.EXPECT().Verify("pw", "$bob$").Return(nil)

		identity, err := s.service.Verify(s.ctx(), "bob", "pw")
		s.Require().NoError(err)
		s.Equal(domain.Identity{ID: 9, Username: "bob", Role: domain.RoleAuditor}, identity)
	})

	s.Run("wrong secret and unknown user fail identically", func() {
		s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "bob").Return(stored, nil)
		s.mockHasher.EXPECT().Verify("nope", "$bob$").Return(password.ErrMismatch)
		_, wrongSecret := s.service.Verify(s.ctx(), "bob", "nope")

		s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Verify("nope", dummyHash).Return(password.ErrMismatch)
		_, unknownUser := s.service.Verify(s.ctx(), "ghost", "nope")

		s.True(dErrors.HasCode(wrongSecret, dErrors.CodeInvalidCredentials))
		s.Equal(wrongSecret.Error(), unknownUser.Error())
	})
}

func (s *ServiceSuite) TestLogin() {
	stored := &models.User{ID: 3, Username: "alice", PasswordHash: "$a$", Role: domain.RoleUser}

	s.Run("opens a session with fixed lifetime", func() {
		ctx := requestcontext.WithClientMetadata(s.ctx(), "10.0.0.9",
			"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
		s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "alice").Return(stored, nil)
		s.mockHasher.EXPECT().Verify("secret1", "$a$").Return(nil)
		s.mockSessions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, sess *models.Session) error {
				s.Equal("fixed-token", sess.Token)
				s.Equal(stored.Identity(), sess.Identity)
				s.Equal(s.now.Add(24*time.Hour), sess.ExpiresAt)
				s.Equal("10.0.0.9", sess.ClientIP)
				s.Contains(sess.Device, "Firefox")
				return nil
			})

		res, err := s.service.Login(ctx, &models.LoginRequest{Username: "alice", Password: "secret1"})
		s.Require().NoError(err)
		s.Equal("fixed-token", res.Token)
		s.Equal(stored.Identity(), res.Identity)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues("success")))
	})

	s.Run("missing fields is a validation error", func() {
		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Username: "alice"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("Missing fields", err.Error())
	})

	s.Run("bad credentials open no session", func() {
		s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "alice").Return(stored, nil)
		s.mockHasher.EXPECT().Verify("wrong1", "$a$").Return(password.ErrMismatch)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Username: "alice", Password: "wrong1"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues("failure")))
	})
}

func (s *ServiceSuite) TestAuthenticate() {
	identity := domain.Identity{ID: 3, Username: "alice", Role: domain.RoleUser}

	s.Run("live session resolves identity", func() {
		s.mockSessions.EXPECT().Find(gomock.Any(), "tok").Return(&models.Session{
			Token: "tok", Identity: identity, ExpiresAt: s.now.Add(time.Hour),
		}, nil)
		got, err := s.service.Authenticate(s.ctx(), "tok")
		s.Require().NoError(err)
		s.Equal(identity, got)
	})

	s.Run("expired or unknown session is unauthorized", func() {
		s.mockSessions.EXPECT().Find(gomock.Any(), "old").Return(&models.Session{
			Token: "old", Identity: identity, ExpiresAt: s.now.Add(-time.Second),
		}, nil)
		_, err := s.service.Authenticate(s.ctx(), "old")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.mockSessions.EXPECT().Find(gomock.Any(), "gone").Return(nil, sentinel.ErrNotFound)
		_, err = s.service.Authenticate(s.ctx(), "gone")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.service.Authenticate(s.ctx(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is internal", func() {
		s.mockSessions.EXPECT().Find(gomock.Any(), "tok").Return(nil, sentinel.ErrUnavailable)
		_, err := s.service.Authenticate(s.ctx(), "tok")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLogout() {
	s.mockSessions.EXPECT().Delete(gomock.Any(), "tok").Return(nil)
	s.Require().NoError(s.service.Logout(s.ctx(), "tok"))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Logouts))

	s.NoError(s.service.Logout(s.ctx(), ""))
}

func (s *ServiceSuite) TestSeedDefaultUsers() {
	s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "auditor").Return(&models.User{ID: 1}, nil)
	s.mockUsers.EXPECT().FindByUsername(gomock.Any(), "user").Return(nil, sentinel.ErrNotFound)
	s.mockHasher.EXPECT().Hash("user123").Return("$u$", nil)
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) error {
			s.Equal("user", u.Username)
			s.Equal(domain.RoleUser, u.Role)
			return nil
		})

	s.NoError(s.service.SeedDefaultUsers(s.ctx()))
}

func TestDeviceLabel(t *testing.T) {
	assert.Equal(t, "", deviceLabel(""))
	assert.Contains(t, deviceLabel("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"), "Safari")
}
