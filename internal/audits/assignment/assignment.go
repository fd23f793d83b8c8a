// Package assignment chooses the auditor who reviews a new request.
package assignment

import (
	"context"
	"fmt"

	"auditflow/internal/audits/models"
	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
)

// ErrNoReviewers is returned when the system has no auditor accounts.
var ErrNoReviewers = dErrors.New(dErrors.CodeNoReviewers, "No auditors available in the system.")

// LoadSource reports every auditor's current review queue length.
type LoadSource interface {
	ReviewerLoads(ctx context.Context) ([]models.ReviewerLoad, error)
}

// Policy assigns requests to the least-loaded auditor.
type Policy struct {
	loads LoadSource
}

func New(loads LoadSource) *Policy {
	return &Policy{loads: loads}
}

// Pick returns the auditor with the fewest PENDING_REVIEW requests. Ties go
// to the lowest id.
func (p *Policy) Pick(ctx context.Context) (domain.UserID, error) {
	loads, err := p.loads.ReviewerLoads(ctx)
	if err != nil {
		return 0, fmt.Errorf("load reviewer queues: %w", err)
	}
	return SelectReviewer(loads)
}

// SelectReviewer applies the least-loaded rule to a snapshot of loads.
func SelectReviewer(loads []models.ReviewerLoad) (domain.UserID, error) {
	if len(loads) == 0 {
		return 0, ErrNoReviewers
	}
	best := loads[0]
	for _, l := range loads[1:] {
		if l.Pending < best.Pending || (l.Pending == best.Pending && l.ReviewerID < best.ReviewerID) {
			best = l
		}
	}
	return best.ReviewerID, nil
}
