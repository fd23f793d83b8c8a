package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"auditflow/internal/audits/models"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/httputil"
	"auditflow/pkg/requestcontext"
)

// Service is the audit workflow as seen by the HTTP layer.
type Service interface {
	Create(ctx context.Context, actor domain.Identity, req *models.CreateAuditRequest) (*models.CreateResult, error)
	List(ctx context.Context, actor domain.Identity) ([]*models.AuditView, error)
	Update(ctx context.Context, actor domain.Identity, id domain.AuditID, req *models.UpdateAuditRequest) (*models.UpdateResult, error)
}

type Handler struct {
	audits  Service
	logger  *slog.Logger
	session func(http.Handler) http.Handler
}

func New(audits Service, logger *slog.Logger, requireSession func(http.Handler) http.Handler) *Handler {
	return &Handler{audits: audits, logger: logger, session: requireSession}
}

// Register mounts the audit routes. All of them require a session.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.session)
		r.Get("/api/audits", h.handleList)
		r.Post("/api/audits", h.handleCreate)
		r.Put("/api/audits/{id}", h.handleUpdate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}

	views, err := h.audits.List(ctx, actor)
	if err != nil {
		h.logFailure(ctx, "list audits failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req models.CreateAuditRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.audits.Create(ctx, actor, &req)
	if err != nil {
		h.logFailure(ctx, "create audit failed", err)
		httputil.WriteError(w, err)
		return
	}

	assignedTo := domain.UserID(0)
	if res.Audit.AssignedTo != nil {
		assignedTo = *res.Audit.AssignedTo
	}
	httputil.WriteJSON(w, http.StatusCreated, models.CreateAuditResponse{
		ID:             res.Audit.ID,
		Message:        "Request submitted successfully",
		AssignedTo:     assignedTo,
		AssignedToName: res.AssignedToName,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.identity(w, r)
	if !ok {
		return
	}

	id, err := domain.ParseAuditID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Audit not found"))
		return
	}

	var req models.UpdateAuditRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.audits.Update(ctx, actor, id, &req)
	if err != nil {
		h.logFailure(ctx, "update audit failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := models.UpdateAuditResponse{Status: res.Audit.Status}
	if res.Reviewed {
		resp.Message = "Audit " + string(res.Audit.Status)
		resp.NotifiedUser = res.Notified
	} else {
		resp.Message = "Data updated and resubmitted for review"
		resp.NotifiedAuditor = res.Notified
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	identity, ok := requestcontext.Identity(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "identity missing from context despite session gate",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
	}
	return identity, ok
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
