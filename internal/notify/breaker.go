package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// breaker opens after threshold consecutive failures and stays open for
// cooldown, after which one attempt is let through.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	open      bool
	now       func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().After(b.openUntil) {
		b.open = false
		b.failures = b.threshold - 1
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// failure reports whether this failure opened the circuit.
func (b *breaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold && !b.open {
		b.open = true
		b.openUntil = b.now().Add(b.cooldown)
		return true
	}
	return false
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// FallbackPublisher sends to primary and, when primary keeps failing, to
// fallback until a cooldown has passed. A single failed attempt is retried
// on fallback immediately.
type FallbackPublisher struct {
	primary  Publisher
	fallback Publisher
	breaker  *breaker
}

func NewFallbackPublisher(primary, fallback Publisher, threshold int, cooldown time.Duration) *FallbackPublisher {
	return &FallbackPublisher{primary: primary, fallback: fallback, breaker: newBreaker(threshold, cooldown)}
}

func (p *FallbackPublisher) Publish(ctx context.Context, event Event) error {
	if !p.breaker.allow() {
		return p.fallback.Publish(ctx, event)
	}
	err := p.primary.Publish(ctx, event)
	if err == nil {
		p.breaker.success()
		return nil
	}
	p.breaker.failure()
	if ferr := p.fallback.Publish(ctx, event); ferr != nil {
		return fmt.Errorf("primary: %w; fallback: %v", err, ferr)
	}
	return nil
}

// Degraded reports whether events currently bypass the primary publisher.
func (p *FallbackPublisher) Degraded() bool {
	return p.breaker.isOpen()
}
