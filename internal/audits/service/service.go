// Package service runs the audit workflow: creation with automatic
// assignment, role-scoped listing, review and resubmission.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ReviewerPicker,Notifier

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"auditflow/internal/audits/metrics"
	"auditflow/internal/audits/models"
	"auditflow/internal/notify"
	"auditflow/pkg/domain"
)

// Store persists audit requests.
type Store interface {
	Create(ctx context.Context, audit *models.AuditRequest) error
	GetByID(ctx context.Context, id domain.AuditID) (*models.AuditRequest, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.AuditView, error)
	ApplyReview(ctx context.Context, id domain.AuditID, update models.ReviewUpdate) error
	Resubmit(ctx context.Context, id domain.AuditID, owner domain.UserID, data models.PurchaseData) error
	Username(ctx context.Context, id domain.UserID) (string, error)
}

// ReviewerPicker chooses the auditor for a new request.
type ReviewerPicker interface {
	Pick(ctx context.Context) (domain.UserID, error)
}

// Transactor runs fn in one transaction carried on ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier queues a notification. It must not block or fail the caller.
type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

type Service struct {
	store    Store
	picker   ReviewerPicker
	notifier Notifier
	tx       Transactor
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithTransactor makes reviewer selection and the insert one transaction.
func WithTransactor(t Transactor) Option {
	return func(s *Service) { s.tx = t }
}

func New(store Store, picker ReviewerPicker, opts ...Option) *Service {
	s := &Service{
		store:    store,
		picker:   picker,
		notifier: discardNotifier{},
		tx:       inline{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("auditflow/internal/audits"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type discardNotifier struct{}

func (discardNotifier) Emit(context.Context, notify.Event) {}

type inline struct{}

func (inline) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
