package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"unifiedinbox/config"
	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/db"
	"unifiedinbox/internal/mqhandler"
	redisclient "unifiedinbox/internal/redis"
	"unifiedinbox/internal/repository"
	"unifiedinbox/internal/service"
	"unifiedinbox/internal/util"
	"unifiedinbox/pkg/logger"
	"unifiedinbox/pkg/mq"
	"unifiedinbox/pkg/otel"
)

const (
	serviceName   = "categorizer-worker"
	categorizeQ   = "email.received.categorize.q"
	dedupTTL      = time.Hour
	retryCountTTL = 24 * time.Hour
)

func main() {
	// Load config
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.MQ.URL == "" {
		fmt.Fprintln(os.Stderr, "mq.url is required for the worker")
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()
	log.Info("Starting categorize worker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := otel.Init(otel.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}
	defer shutdownOTel()

	// Init Redis
	rdb, err := redisclient.NewClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Rule table
	seed := categorize.DefaultRules()
	if cfg.Rules.SeedFile != "" {
		seed, err = repository.LoadRuleSeed(cfg.Rules.SeedFile)
		if err != nil {
			log.Fatal("Failed to load rule seed", zap.String("file", cfg.Rules.SeedFile), zap.Error(err))
		}
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	categorizeSvc := service.NewCategorizeService(
		categorize.New(),
		repository.NewRuleRepository(seed),
		publisher,
		log,
	)
	handler := mqhandler.NewEmailReceivedCategorizeHandler(
		categorizeSvc,
		repository.NewMetadataRepository(dbConn),
		util.NewDeduper(rdb, dedupTTL, log),
		util.NewRetryCounter(rdb, retryCountTTL),
		log,
	)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, categorizeQ, mq.RoutingKeyEmailReceived, log)
	if err != nil {
		log.Fatal("Failed to init categorize consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(handler.HandleEmailReceived)

	log.Info("Worker is ready to process messages", zap.String("queue", categorizeQ))
	// broker 断开时非零退出，交给进程管理器重启
	if err := consumer.StartConsuming(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Consumer stopped", zap.Error(err))
	}
	log.Info("Worker stopped")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
