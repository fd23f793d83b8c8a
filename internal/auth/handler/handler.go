package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"auditflow/internal/auth/models"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/httputil"
	"auditflow/pkg/requestcontext"
)

// Service defines the interface for credential and session operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (domain.UserID, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handler handles registration, login and session endpoints.
type Handler struct {
	auth    Service
	logger  *slog.Logger
	cookie  CookieConfig
	session func(http.Handler) http.Handler
}

// New creates a new auth Handler. requireSession guards the endpoints that
// need an authenticated identity.
func New(auth Service, logger *slog.Logger, cookie CookieConfig, requireSession func(http.Handler) http.Handler) *Handler {
	return &Handler{
		auth:    auth,
		logger:  logger,
		cookie:  cookie,
		session: requireSession,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)
	r.With(h.session).Get("/api/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	userID, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "register failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.RegisterResponse{
		Message: "User registered successfully",
		UserID:  userID,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.Login(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "login failed", err)
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login success",
		User:    res.Identity,
	})
}

// handleLogout is idempotent: without a session it still clears the cookie.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.auth.Logout(ctx, cookie.Value); err != nil {
			h.logFailure(ctx, "logout failed", err)
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
				Error: "Could not log out",
				Code:  string(dErrors.CodeInternal),
			})
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestcontext.Identity(ctx)
	if !ok {
		// This should never happen if the session gate is configured correctly
		h.logger.ErrorContext(ctx, "identity missing from context despite session gate",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"code", de.Code,
		)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
}
