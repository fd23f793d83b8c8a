package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts workflow transitions.
type Metrics struct {
	Created      prometheus.Counter
	Reviewed     *prometheus.CounterVec
	Resubmitted  prometheus.Counter
	NoReviewers  prometheus.Counter
	NameFallback *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_audits_created_total",
			Help: "Audit requests created and assigned",
		}),
		Reviewed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_audits_reviewed_total",
			Help: "Review decisions by resulting status",
		}, []string{"status"}),
		Resubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_audits_resubmitted_total",
			Help: "Audit requests returned to review by their owner",
		}),
		NoReviewers: f.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_audits_no_reviewers_total",
			Help: "Create attempts rejected because no auditor exists",
		}),
		NameFallback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_display_name_fallback_total",
			Help: "Display name lookups that fell back to Unknown",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() { m.Created.Inc() }

func (m *Metrics) IncrementReviewed(status string) { m.Reviewed.WithLabelValues(status).Inc() }

func (m *Metrics) IncrementResubmitted() { m.Resubmitted.Inc() }

func (m *Metrics) IncrementNoReviewers() { m.NoReviewers.Inc() }

// IncrementNameFallback records a secondary lookup that failed during operation.
func (m *Metrics) IncrementNameFallback(operation string) {
	m.NameFallback.WithLabelValues(operation).Inc()
}
