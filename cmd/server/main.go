package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"unifiedinbox/config"
	"unifiedinbox/internal/api"
	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/ratelimit"
	"unifiedinbox/internal/repository"
	"unifiedinbox/internal/service"
	"unifiedinbox/pkg/circuitbreaker"
	"unifiedinbox/pkg/logger"
	"unifiedinbox/pkg/mq"
	"unifiedinbox/pkg/otel"
)

const serviceName = "categorizer-api"

func main() {
	// 1. Load config
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
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

	// 3. Rule table
	seed := categorize.DefaultRules()
	if cfg.Rules.SeedFile != "" {
		seed, err = repository.LoadRuleSeed(cfg.Rules.SeedFile)
		if err != nil {
			log.Fatal("Failed to load rule seed", zap.String("file", cfg.Rules.SeedFile), zap.Error(err))
		}
	}
	ruleRepo := repository.NewRuleRepository(seed)
	log.Info("Rule table loaded", zap.Int("rules", len(seed)))

	// 4. Optional RabbitMQ publisher
	var publisher service.EventPublisher
	var mqPublisher *mq.Publisher
	if cfg.MQ.URL != "" {
		mqPublisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init publisher", zap.Error(err))
		}
		defer mqPublisher.Close()
		publisher = mq.NewGuardedPublisher(mqPublisher, circuitbreaker.New("mq_publisher", circuitbreaker.DefaultConfig()))
		log.Info("Publishing categorization events", zap.String("exchange", mq.ExchangeName))
	}

	// 5. Services & handlers
	categorizeSvc := service.NewCategorizeService(categorize.New(), ruleRepo, publisher, log)
	ruleSvc := service.NewRuleService(ruleRepo, publisher, log)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	ready := func(context.Context) error {
		if mqPublisher != nil && !mqPublisher.IsConnected() {
			return errors.New("mq publisher disconnected")
		}
		return nil
	}

	router := api.NewRouter(
		api.NewCategorizeHandler(categorizeSvc, log),
		api.NewRuleHandler(ruleSvc, log),
		limiter,
		cfg.Auth.JWTSecret,
		ready,
		log,
	)

	// 6. Run server
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
