package models

import (
	"strings"

	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
)

// CreateAuditRequest is the body of POST /api/audits.
type CreateAuditRequest struct {
	Title        string        `json:"title"`
	Type         string        `json:"type"`
	PurchaseData *PurchaseData `json:"purchase_data"`
}

// Normalize trims input and fills the default type.
func (r *CreateAuditRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		r.Type = DefaultType
	}
}

func (r *CreateAuditRequest) Validate() error {
	if r.Title == "" || r.PurchaseData == nil {
		return dErrors.New(dErrors.CodeValidation, "Missing required fields")
	}
	if len(r.Title) > 200 {
		return dErrors.New(dErrors.CodeValidation, `"title" must be at most 200 characters`)
	}
	return r.PurchaseData.Validate()
}

// UpdateAuditRequest is the body of PUT /api/audits/{id}. Auditors send a
// decision; requesters send a replacement payload.
type UpdateAuditRequest struct {
	Status       string        `json:"status"`
	AdminNotes   string        `json:"admin_notes"`
	PurchaseData *PurchaseData `json:"purchase_data"`
}

type CreateAuditResponse struct {
	ID             domain.AuditID `json:"id"`
	Message        string         `json:"message"`
	AssignedTo     domain.UserID  `json:"assignedTo"`
	AssignedToName string         `json:"assignedToName"`
}

type UpdateAuditResponse struct {
	Message         string `json:"message"`
	Status          Status `json:"status"`
	NotifiedUser    string `json:"notifiedUser,omitempty"`
	NotifiedAuditor string `json:"notifiedAuditor,omitempty"`
}

// CreateResult is returned by a successful creation.
type CreateResult struct {
	Audit          *AuditRequest
	AssignedToName string
}

// UpdateResult is returned by a review or resubmission.
type UpdateResult struct {
	Audit *AuditRequest
	// Notified is the display name of the counterpart: the requester after a
	// review, the assignee after a resubmission.
	Notified string
	Reviewed bool
}
