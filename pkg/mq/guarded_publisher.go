package mq

import (
	"context"

	"unifiedinbox/pkg/circuitbreaker"
)

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// GuardedPublisher fails fast with circuitbreaker.ErrOpen while the broker
// keeps failing, so request paths do not wait on a dead connection.
type GuardedPublisher struct {
	inner   EventPublisher
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedPublisher(inner EventPublisher, breaker *circuitbreaker.CircuitBreaker) *GuardedPublisher {
	return &GuardedPublisher{inner: inner, breaker: breaker}
}

func (g *GuardedPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	return g.breaker.Execute(func() error {
		return g.inner.Publish(ctx, routingKey, payload)
	})
}
