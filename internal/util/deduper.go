package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// DedupKey 格式: dedup:<handler>:<emailID>
func DedupKey(handler string, emailID int) string {
	return fmt.Sprintf("dedup:%s:%d", handler, emailID)
}

// AcquireOnce returns true the first time handler sees emailID within ttl.
// When Redis is unreachable processing is allowed.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, emailID int) bool {
	key := DedupKey(handler, emailID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.Int("email_id", emailID),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.Int("email_id", emailID),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the key so a redelivered message is processed again.
func (d *Deduper) Release(ctx context.Context, handler string, emailID int) {
	if err := d.rdb.Del(ctx, DedupKey(handler, emailID)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.Int("email_id", emailID),
			zap.Error(err),
		)
	}
}
