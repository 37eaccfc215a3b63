package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/data/cache"
	"github.com/mpesa-stk-gateway/internal/data/mongo"
	"github.com/mpesa-stk-gateway/internal/data/postgres"
	"github.com/mpesa-stk-gateway/internal/logger"
	"github.com/mpesa-stk-gateway/internal/payment_gateway"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/service"
	"github.com/mpesa-stk-gateway/internal/platform/messaging/producers"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/mpesa-stk-gateway/internal/platform/persistence"
	"github.com/mpesa-stk-gateway/internal/stk"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if missing := cfg.Mpesa.MissingCredentials(); len(missing) > 0 {
		log.Warn("M-Pesa credentials incomplete, push requests will be rejected", "missing", missing)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Malformed callbacks go to the DLQ when a topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Provider client, sharing its access token through Redis when enabled
	var tokens mpesa.TokenStore
	if redisClient != nil {
		tokens = cache.NewTokenStore(redisClient, cfg.Redis.KeyPrefix)
	}
	mpesaClient := mpesa.NewClient(log, cfg.Mpesa, tokens)

	// Initialize repositories
	businessRepo := postgres.NewBusinessRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	callbackArchive := mongo.NewCallbackRepository(log, mongoDB.Database())

	var dlq stk.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	// Initialize services
	initiator := stk.NewInitiator(cfg.Mpesa, businessRepo, transactionRepo, mpesaClient, log)
	finalizer := stk.NewFinalizer(postgresDB, transactionRepo, outboxRepo, log)
	reconciler := stk.NewReconciler(transactionRepo, finalizer, callbackArchive, dlq, cfg.Mpesa.DefaultBusinessID, log)
	transactionService := service.NewTransactionService(log, transactionRepo, callbackArchive)

	checks := map[string]payment_gateway.Pinger{
		"postgres": postgresDB,
		"mongodb":  mongoDB,
	}
	if redisClient != nil {
		checks["redis"] = persistence.RedisPinger(redisClient)
	}

	server := payment_gateway.NewServer(log, cfg, initiator, reconciler, transactionService, checks)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing the stores they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
