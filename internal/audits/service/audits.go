package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"auditflow/internal/audits/assignment"
	"auditflow/internal/audits/models"
	"auditflow/internal/notify"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/requestcontext"
)

var (
	errNotFound         = dErrors.New(dErrors.CodeNotFound, "Audit not found")
	errPermissionDenied = dErrors.New(dErrors.CodeForbidden, "Permission denied")
	errMissingFields    = dErrors.New(dErrors.CodeValidation, "Missing required fields")
)

// Create validates req, assigns the least-loaded auditor and stores the
// request in PENDING_REVIEW. Selection and insert share a transaction when a
// Transactor is configured.
func (s *Service) Create(ctx context.Context, actor domain.Identity, req *models.CreateAuditRequest) (*models.CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "audits.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	audit := &models.AuditRequest{
		Title:        req.Title,
		Type:         req.Type,
		CreatedBy:    actor.ID,
		Config:       models.DefaultConfig(),
		PurchaseData: *req.PurchaseData,
		Status:       models.StatusPendingReview,
		SubmittedAt:  &now,
		CreatedAt:    now,
	}

	var reviewer domain.UserID
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if reviewer, err = s.picker.Pick(ctx); err != nil {
			if errors.Is(err, assignment.ErrNoReviewers) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign reviewer")
		}
		audit.AssignedTo = &reviewer
		if err := s.store.Create(ctx, audit); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create audit")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, assignment.ErrNoReviewers) {
			if s.metrics != nil {
				s.metrics.IncrementNoReviewers()
			}
			return nil, err
		}
		span.SetStatus(codes.Error, "create failed")
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create audit")
	}

	name := s.displayName(ctx, reviewer, "create")
	span.SetAttributes(attribute.Int64("audit.id", int64(audit.ID)), attribute.Int64("audit.assigned_to", int64(reviewer)))
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.notifier.Emit(ctx, notify.Event{
		Kind:       notify.KindAssigned,
		AuditID:    audit.ID,
		Recipient:  name,
		Status:     string(audit.Status),
		OccurredAt: now,
	})
	s.logger.InfoContext(ctx, "audit created",
		"audit_id", audit.ID,
		"created_by", actor.ID,
		"assigned_to", reviewer,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.CreateResult{Audit: audit, AssignedToName: name}, nil
}

// List returns the requests visible to actor: their own as a requester, or
// those assigned to them as an auditor.
func (s *Service) List(ctx context.Context, actor domain.Identity) ([]*models.AuditView, error) {
	ctx, span := s.tracer.Start(ctx, "audits.List")
	defer span.End()

	var filter models.ListFilter
	switch actor.Role {
	case domain.RoleUser:
		filter.CreatedBy = &actor.ID
	case domain.RoleAuditor:
		filter.AssignedTo = &actor.ID
	default:
		return []*models.AuditView{}, nil
	}

	views, err := s.store.List(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, "list failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audits")
	}
	span.SetAttributes(attribute.Int("audits.count", len(views)))
	return views, nil
}

// Update dispatches a PUT by the actor's role: auditors review, the owning
// requester resubmits, anyone else is denied.
func (s *Service) Update(ctx context.Context, actor domain.Identity, id domain.AuditID, req *models.UpdateAuditRequest) (*models.UpdateResult, error) {
	audit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsAuditor():
		return s.review(ctx, actor, audit, req.Status, req.AdminNotes)
	case actor.IsUser() && actor.ID == audit.CreatedBy:
		if req.PurchaseData == nil {
			return nil, errMissingFields
		}
		return s.resubmit(ctx, actor, audit, *req.PurchaseData)
	default:
		return nil, errPermissionDenied
	}
}

// Review records an auditor's decision on a pending request.
func (s *Service) Review(ctx context.Context, actor domain.Identity, id domain.AuditID, decision, notes string) (*models.UpdateResult, error) {
	audit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, actor, audit, decision, notes)
}

// Resubmit replaces the payload of the actor's own request and returns it to
// review.
func (s *Service) Resubmit(ctx context.Context, actor domain.Identity, id domain.AuditID, data models.PurchaseData) (*models.UpdateResult, error) {
	audit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resubmit(ctx, actor, audit, data)
}

func (s *Service) review(ctx context.Context, actor domain.Identity, audit *models.AuditRequest, rawDecision, notes string) (*models.UpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "audits.Review")
	defer span.End()

	if err := audit.CanReview(actor); err != nil {
		return nil, err
	}
	decision, err := models.ParseDecision(rawDecision)
	if err != nil {
		return nil, err
	}

	update := models.ReviewUpdate{
		Status:     decision.Outcome(),
		Notes:      notes,
		ReviewerID: actor.ID,
		ReviewedAt: requestcontext.Now(ctx),
	}
	if err := s.store.ApplyReview(ctx, audit.ID, update); err != nil {
		if errors.Is(err, sentinel.ErrStale) {
			return nil, s.conflict(ctx, audit.ID, func(current *models.AuditRequest) error {
				return current.CanReview(actor)
			})
		}
		span.SetStatus(codes.Error, "review failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update audit")
	}
	audit.ApplyReview(update)

	creator := s.displayName(ctx, audit.CreatedBy, "review")
	span.SetAttributes(attribute.Int64("audit.id", int64(audit.ID)), attribute.String("audit.status", string(audit.Status)))
	if s.metrics != nil {
		s.metrics.IncrementReviewed(string(audit.Status))
	}
	s.notifier.Emit(ctx, notify.Event{
		Kind:       notify.KindReviewed,
		AuditID:    audit.ID,
		Recipient:  creator,
		Status:     string(audit.Status),
		OccurredAt: update.ReviewedAt,
	})
	s.logger.InfoContext(ctx, "audit reviewed",
		"audit_id", audit.ID,
		"reviewer_id", actor.ID,
		"status", audit.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.UpdateResult{Audit: audit, Notified: creator, Reviewed: true}, nil
}

func (s *Service) resubmit(ctx context.Context, actor domain.Identity, audit *models.AuditRequest, data models.PurchaseData) (*models.UpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "audits.Resubmit")
	defer span.End()

	if err := audit.CanResubmit(actor); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Resubmit(ctx, audit.ID, actor.ID, data); err != nil {
		if errors.Is(err, sentinel.ErrStale) {
			return nil, s.conflict(ctx, audit.ID, func(current *models.AuditRequest) error {
				return current.CanResubmit(actor)
			})
		}
		span.SetStatus(codes.Error, "resubmit failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update audit")
	}
	audit.ApplyResubmit(data)

	assignee := models.UnknownName
	if audit.AssignedTo != nil {
		assignee = s.displayName(ctx, *audit.AssignedTo, "resubmit")
	}
	span.SetAttributes(attribute.Int64("audit.id", int64(audit.ID)))
	if s.metrics != nil {
		s.metrics.IncrementResubmitted()
	}
	s.notifier.Emit(ctx, notify.Event{
		Kind:       notify.KindResubmitted,
		AuditID:    audit.ID,
		Recipient:  assignee,
		Status:     string(audit.Status),
		OccurredAt: requestcontext.Now(ctx),
	})
	s.logger.InfoContext(ctx, "audit resubmitted",
		"audit_id", audit.ID,
		"user_id", actor.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.UpdateResult{Audit: audit, Notified: assignee}, nil
}

func (s *Service) get(ctx context.Context, id domain.AuditID) (*models.AuditRequest, error) {
	audit, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit")
	}
	return audit, nil
}

// conflict explains a conditional update that matched no row: the record
// changed state between the read and the write.
func (s *Service) conflict(ctx context.Context, id domain.AuditID, guard func(*models.AuditRequest) error) error {
	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := guard(current); err != nil {
		return err
	}
	return dErrors.New(dErrors.CodeConflict, "Audit was modified concurrently")
}

// displayName is a secondary lookup: a failure is logged and shown as
// models.UnknownName, never returned.
func (s *Service) displayName(ctx context.Context, id domain.UserID, operation string) string {
	name, err := s.store.Username(ctx, id)
	if err == nil && name != "" {
		return name
	}
	if s.metrics != nil {
		s.metrics.IncrementNameFallback(operation)
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "display name lookup failed",
			"user_id", id,
			"operation", operation,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return models.UnknownName
}
