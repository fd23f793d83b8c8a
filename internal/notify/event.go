// Package notify delivers workflow notifications to the people involved in an
// audit request. Delivery is best-effort: callers never see a failure.
package notify

import (
	"time"

	"auditflow/pkg/domain"
)

// Kind names the workflow step that produced an event.
type Kind string

const (
	KindAssigned    Kind = "audit.assigned"
	KindReviewed    Kind = "audit.reviewed"
	KindResubmitted Kind = "audit.resubmitted"
)

// Event is addressed to one recipient by display name.
type Event struct {
	Kind       Kind           `json:"kind"`
	AuditID    domain.AuditID `json:"audit_id"`
	Recipient  string         `json:"recipient"`
	Status     string         `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
}
