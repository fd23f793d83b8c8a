package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"auditflow/pkg/domain"
)

// Status is the lifecycle state of an audit request.
type Status string

const (
	StatusPendingData   Status = "PENDING_DATA"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusVerified      Status = "VERIFIED"
	StatusRejected      Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingData, StatusPendingReview, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusVerified
}

// DefaultType labels requests created without an explicit type.
const DefaultType = "Purchase"

// Attachments records which supporting documents were provided.
type Attachments struct {
	Invoice bool `json:"invoice"`
}

// PurchaseData is the typed payload of an audit request.
type PurchaseData struct {
	Vendor        string           `json:"vendor"`
	Amount        decimal.Decimal  `json:"amount"`
	PurchaseRate  *decimal.Decimal `json:"purchase_rate,omitempty"`
	ApprovedRate  *decimal.Decimal `json:"approved_rate,omitempty"`
	InvoiceNumber string           `json:"invoiceNumber,omitempty"`
	InvoiceDate   string           `json:"invoiceDate,omitempty"`
	DueDate       string           `json:"dueDate,omitempty"`
	Attachments   Attachments      `json:"attachments"`
}

// AuditConfig is the per-request configuration blob.
type AuditConfig struct {
	RequirePurchaseRate bool `json:"require_purchase_rate"`
}

// DefaultConfig is attached to every new request.
func DefaultConfig() AuditConfig {
	return AuditConfig{RequirePurchaseRate: true}
}

// AuditRequest is a stored purchase-approval record.
type AuditRequest struct {
	ID           domain.AuditID `json:"id"`
	Title        string         `json:"title"`
	Type         string         `json:"type"`
	AssignedTo   *domain.UserID `json:"assigned_to"`
	CreatedBy    domain.UserID  `json:"created_by"`
	Config       AuditConfig    `json:"config"`
	PurchaseData PurchaseData   `json:"purchase_data"`
	Status       Status         `json:"status"`
	AdminNotes   *string        `json:"admin_notes"`
	SubmittedAt  *time.Time     `json:"submitted_at"`
	ReviewedAt   *time.Time     `json:"reviewed_at"`
	ReviewedBy   *domain.UserID `json:"reviewed_by"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditView is a stored record enriched with display names for listing.
type AuditView struct {
	AuditRequest
	AuditorName string `json:"auditor_name"`
	CreatorName string `json:"creator_name"`
}

// ListFilter scopes a listing to one creator or one assignee.
type ListFilter struct {
	CreatedBy  *domain.UserID
	AssignedTo *domain.UserID
}

// ReviewerLoad is an auditor with the number of requests awaiting their review.
type ReviewerLoad struct {
	ReviewerID domain.UserID
	Pending    int
}

// ReviewUpdate is the persisted effect of a review decision.
type ReviewUpdate struct {
	Status     Status
	Notes      string
	ReviewerID domain.UserID
	ReviewedAt time.Time
}

// UnknownName is shown wherever a referenced user cannot be resolved.
const UnknownName = "Unknown"

// DecodePurchaseData parses a stored payload. Malformed or wrongly-typed
// JSON yields the zero value.
func DecodePurchaseData(raw string) PurchaseData {
	var data PurchaseData
	if raw == "" {
		return data
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return PurchaseData{}
	}
	return data
}

// DecodeConfig parses a stored configuration blob, degrading like
// DecodePurchaseData.
func DecodeConfig(raw string) AuditConfig {
	var cfg AuditConfig
	if raw == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return AuditConfig{}
	}
	return cfg
}
