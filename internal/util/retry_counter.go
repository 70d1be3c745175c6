package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter tracks how many times an email failed a handler with a
// retryable error. The handler dead-letters the message once the count
// passes its budget; a successful run clears the count.
type RetryCounter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRetryCounter(rdb *redis.Client, window time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, window: window}
}

// RetryKey 格式: retry:<handler>:<emailID>
func RetryKey(handler string, emailID int) string {
	return fmt.Sprintf("retry:%s:%d", handler, emailID)
}

// Attempt records one more failed attempt and returns the running total.
// INCR and EXPIRE share a MULTI so the key never outlives the window
// without a TTL; each failure slides the window forward.
func (r *RetryCounter) Attempt(ctx context.Context, handler string, emailID int) (int64, error) {
	key := RetryKey(handler, emailID)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("retry counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Clear drops the failure history once the email was stored.
func (r *RetryCounter) Clear(ctx context.Context, handler string, emailID int) error {
	return r.rdb.Del(ctx, RetryKey(handler, emailID)).Err()
}
