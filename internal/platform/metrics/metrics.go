package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and authentication metrics shared across modules.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	UsersCreated    *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	Logouts         prometheus.Counter
}

// New creates and registers all platform metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auditflow_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		UsersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_users_created_total",
			Help: "Total number of users created, by role",
		}, []string{"role"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"result"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_logouts_total",
			Help: "Total number of sessions ended by logout",
		}),
	}
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementUsersCreated(role string) {
	m.UsersCreated.WithLabelValues(role).Inc()
}

// IncrementLogin records a login attempt; result is "success" or "failure".
func (m *Metrics) IncrementLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementLogout() {
	m.Logouts.Inc()
}

// Handler exposes the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
