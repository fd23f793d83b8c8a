package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementCreated()
	m.IncrementCreated()
	m.IncrementReviewed("VERIFIED")
	m.IncrementReviewed("REJECTED")
	m.IncrementReviewed("REJECTED")
	m.IncrementResubmitted()
	m.IncrementNoReviewers()
	m.IncrementNameFallback("review")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reviewed.WithLabelValues("VERIFIED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reviewed.WithLabelValues("REJECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NoReviewers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NameFallback.WithLabelValues("review")))
}
