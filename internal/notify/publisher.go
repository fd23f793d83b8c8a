package notify

import (
	"context"
	"log/slog"
)

// Publisher hands an event to a delivery channel.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the application log. It is the default when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "notification",
		"kind", event.Kind,
		"audit_id", event.AuditID,
		"recipient", event.Recipient,
		"status", event.Status,
	)
	return nil
}
