package notify

import (
	"context"
	"log/slog"
	"time"
)

const defaultBuffer = 256

// Dispatcher decouples request handling from delivery. Emit never blocks:
// when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	publisher Publisher
	inbox     chan Event
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithBuffer(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.inbox = make(chan Event, n)
		}
	}
}

// WithPublishTimeout bounds each delivery attempt.
func WithPublishTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

func NewDispatcher(publisher Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		inbox:     make(chan Event, defaultBuffer),
		logger:    logger,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Emit queues event for delivery.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case d.inbox <- event:
	default:
		d.logger.WarnContext(ctx, "notification dropped, queue full",
			"kind", event.Kind,
			"audit_id", event.AuditID,
		)
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already queued. Delivery failures are logged, not returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case event := <-d.inbox:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.inbox:
			d.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Error("notification delivery failed",
			"kind", event.Kind,
			"audit_id", event.AuditID,
			"error", err,
		)
	}
}
