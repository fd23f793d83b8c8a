package models

import (
	"strings"

	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
)

// Decision is an auditor's verdict on a pending request.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision accepts only APPROVED or REJECTED.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionApproved, DecisionRejected:
		return d, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, `"status" must be one of [APPROVED, REJECTED]`)
}

// Outcome is the status a decision moves a request into.
func (d Decision) Outcome() Status {
	if d == DecisionApproved {
		return StatusVerified
	}
	return StatusRejected
}

var errPermissionDenied = dErrors.New(dErrors.CodeForbidden, "Permission denied")

// reviewableFrom and resubmittableFrom are the only legal source states.
var (
	reviewableFrom    = []Status{StatusPendingReview}
	resubmittableFrom = []Status{StatusRejected, StatusPendingReview, StatusPendingData}
)

// ReviewableFrom lists the states a review may start from.
func ReviewableFrom() []Status { return append([]Status(nil), reviewableFrom...) }

// ResubmittableFrom lists the states a resubmission may start from.
func ResubmittableFrom() []Status { return append([]Status(nil), resubmittableFrom...) }

// CanReview reports whether actor may record a decision on a.
func (a *AuditRequest) CanReview(actor domain.Identity) error {
	if !actor.IsAuditor() {
		return errPermissionDenied
	}
	if !contains(reviewableFrom, a.Status) {
		return invalidTransition(a.Status, "reviewed")
	}
	return nil
}

// ApplyReview records decision on a. Call CanReview first.
func (a *AuditRequest) ApplyReview(u ReviewUpdate) {
	a.Status = u.Status
	notes := u.Notes
	a.AdminNotes = &notes
	reviewedAt := u.ReviewedAt
	a.ReviewedAt = &reviewedAt
	reviewer := u.ReviewerID
	a.ReviewedBy = &reviewer
}

// CanResubmit reports whether actor may replace the payload of a. Only the
// original requester may, and never once the request is verified.
func (a *AuditRequest) CanResubmit(actor domain.Identity) error {
	if !actor.IsUser() || actor.ID != a.CreatedBy {
		return errPermissionDenied
	}
	if !contains(resubmittableFrom, a.Status) {
		return invalidTransition(a.Status, "resubmitted")
	}
	return nil
}

// ApplyResubmit replaces the payload and returns a to review. Assignee,
// notes and timestamps are left untouched.
func (a *AuditRequest) ApplyResubmit(data PurchaseData) {
	a.PurchaseData = data
	a.Status = StatusPendingReview
}

// CanView reports whether actor's role-scoped listing includes a.
func (a *AuditRequest) CanView(actor domain.Identity) bool {
	switch actor.Role {
	case domain.RoleUser:
		return a.CreatedBy == actor.ID
	case domain.RoleAuditor:
		return a.AssignedTo != nil && *a.AssignedTo == actor.ID
	}
	return false
}

// Validate checks a payload before it is stored.
func (d *PurchaseData) Validate() error {
	if !d.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, `"amount" must be greater than 0`)
	}
	if d.PurchaseRate != nil && d.PurchaseRate.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, `"purchase_rate" must not be negative`)
	}
	if d.ApprovedRate != nil && d.ApprovedRate.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, `"approved_rate" must not be negative`)
	}
	d.Vendor = strings.TrimSpace(d.Vendor)
	return nil
}

func invalidTransition(from Status, action string) error {
	return dErrors.New(dErrors.CodeInvalidTransition, "Audit is "+string(from)+" and cannot be "+action)
}

func contains(states []Status, s Status) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
