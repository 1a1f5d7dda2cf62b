package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymnotify/internal/api"
	"gymnotify/internal/config"
	"gymnotify/internal/dispatch"
	"gymnotify/internal/expiry"
	"gymnotify/internal/kafka"
	"gymnotify/internal/logging"
	"gymnotify/internal/metrics"
	"gymnotify/internal/models"
	"gymnotify/internal/providers"
	"gymnotify/internal/ratelimit"
	"gymnotify/internal/scheduler"
	"gymnotify/internal/token"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database. Outside production the service can run without
	// one: metrics degrade to log-only and the expiry scan is disabled.
	var pool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		pool, err = pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			log.Fatalf("Database connection failed: %v", err)
		}
		defer pool.Close()
	} else {
		logger.Warn("DB_DSN not set, running without metrics storage and expiry scan")
	}

	// Delivery metrics: best-effort store + live dashboard feed
	feed := api.NewFeed(logger)
	var store metrics.Store
	if pool != nil {
		store = metrics.NewPGStore(pool)
	}
	recorder := metrics.NewRecorder(store, feed, logger)

	// Rate limiter with periodic sweep
	limiter := ratelimit.New(
		cfg.RateLimit.RecipientLimit, cfg.RateLimit.RecipientWindow,
		cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow,
	)
	limiter.StartSweeper(ctx, cfg.RateLimit.RecipientWindow, logger)

	// Provider transports
	tokens := token.NewCache(cfg.SMS.TokenURL, cfg.SMS.ClientID, cfg.SMS.ClientSecret, cfg.IsProduction(), logger)
	smsTransport := providers.NewSMS(cfg.SMS.BaseURL, cfg.SMS.FromNumber, tokens, logger)
	emailTransport := providers.NewEmail(
		cfg.Email.SMTPServer, cfg.Email.SMTPPort,
		cfg.Email.Username, cfg.Email.Password, cfg.Email.FromName,
		cfg.IsProduction(), logger,
	)

	// Channel engines
	opts := dispatch.Options{
		MaxRetries:         cfg.Dispatch.MaxRetries,
		BaseDelay:          cfg.Dispatch.BaseDelay,
		AttemptTimeout:     cfg.Dispatch.AttemptTimeout,
		DefaultCountryCode: cfg.Validation.DefaultCountryCode,
	}
	smsEngine := dispatch.NewEngine(models.ChannelSMS, smsTransport, limiter, recorder, logger, opts)
	emailEngine := dispatch.NewEngine(models.ChannelEmail, emailTransport, limiter, recorder, logger, opts)
	bulk := dispatch.NewBulkSender(smsEngine, cfg.Dispatch.PacingDelay, logger)

	// Expiry scan job + daily schedule
	ops := providers.NewOpsNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, logger)
	var job *expiry.Job
	if pool != nil {
		job = expiry.NewJob(expiry.NewPGStore(pool), smsEngine, emailEngine, ops,
			cfg.Expiry.HorizonDays, cfg.Dispatch.PacingDelay, logger)
		cronRunner, err := scheduler.Start(ctx, cfg.Expiry.CronSpec, job, logger)
		if err != nil {
			log.Fatalf("Failed to schedule expiry scan: %v", err)
		}
		defer cronRunner.Stop()
	}

	// Kafka intake for requests produced by the main gym application
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID,
			smsEngine, emailEngine, logger)
		defer consumer.Close()
		go consumer.Start(ctx)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	handler := api.NewHandler(smsEngine, emailEngine, bulk, job, recorder, feed, logger)
	router := api.NewRouter(handler, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")
	cancel()
	logger.Info("Service stopped")
}
