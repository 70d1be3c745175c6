package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"unifiedinbox/config"
)

// The worker is the only writer of emails_metadata and runs one upsert per
// in-flight delivery, so the pool tracks the consumer prefetch.
const (
	maxConns        = 16
	minConns        = 2
	maxConnIdleTime = time.Minute
	connectTimeout  = 5 * time.Second
	pingTimeout     = 2 * time.Second
)

// NewConnection opens the emails_metadata pool and fails fast when the
// database is unreachable.
func NewConnection(cfg config.DBConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to categorization store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.Name),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Name, err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), pingTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Name, err)
	}

	logger.Info("Categorization store ready")
	return pool, nil
}

// poolConfig builds the pgx pool config; credentials are URL-escaped so
// passwords with reserved characters survive.
func poolConfig(cfg config.DBConfig, logger *zap.Logger) (*pgxpool.Config, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=disable",
	}

	poolCfg, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("parse db config for %s: %w", cfg.Name, err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.MaxConnIdleTime = maxConnIdleTime
	poolCfg.ConnConfig.Tracer = NewSlowQueryTracer(logger, 0)
	return poolCfg, nil
}
