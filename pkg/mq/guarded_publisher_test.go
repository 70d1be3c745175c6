package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"unifiedinbox/pkg/circuitbreaker"
)

type countingPublisher struct {
	calls int
	err   error
}

func (c *countingPublisher) Publish(context.Context, string, any) error {
	c.calls++
	return c.err
}

func TestGuardedPublisherFailsFast(t *testing.T) {
	inner := &countingPublisher{err: errors.New("channel closed")}
	g := NewGuardedPublisher(inner, circuitbreaker.New("test-publisher", circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	}))

	ctx := context.Background()
	assert.Error(t, g.Publish(ctx, RoutingKeyEmailCategorized, nil))
	assert.Error(t, g.Publish(ctx, RoutingKeyEmailCategorized, nil))
	assert.ErrorIs(t, g.Publish(ctx, RoutingKeyEmailCategorized, nil), circuitbreaker.ErrOpen)
	assert.Equal(t, 2, inner.calls)
}
