package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/data/cache"
	"github.com/mpesa-stk-gateway/internal/data/mongo"
	"github.com/mpesa-stk-gateway/internal/data/postgres"
	"github.com/mpesa-stk-gateway/internal/logger"
	"github.com/mpesa-stk-gateway/internal/platform/messaging/producers"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/mpesa-stk-gateway/internal/platform/persistence"
	"github.com/mpesa-stk-gateway/internal/reconciliation_worker/outbox_poller"
	"github.com/mpesa-stk-gateway/internal/reconciliation_worker/sweeper"
	"github.com/mpesa-stk-gateway/internal/stk"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciliation_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciliation Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	eventProducer, err := producers.NewTransactionEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize transaction event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	callbackArchive := mongo.NewCallbackRepository(log, mongoDB.Database())

	// Outbox relay
	eventPublisher := outbox_poller.NewEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Stale pending sweeper, finalizing through the same path as the callback endpoint
	var (
		staleSweeper *sweeper.Sweeper
		pool         *sweeper.WorkerPool
	)
	if cfg.Sweeper.Enabled {
		pool, err = sweeper.NewWorkerPool(cfg.WorkerPool, log)
		if err != nil {
			log.Error("Failed to initialize worker pool", "error", err)
			os.Exit(1)
		}

		var tokens mpesa.TokenStore
		if redisClient != nil {
			tokens = cache.NewTokenStore(redisClient, cfg.Redis.KeyPrefix)
		}
		mpesaClient := mpesa.NewClient(log, cfg.Mpesa, tokens)

		finalizer := stk.NewFinalizer(postgresDB, transactionRepo, outboxRepo, log)
		reconciler := stk.NewReconciler(transactionRepo, finalizer, callbackArchive, nil, cfg.Mpesa.DefaultBusinessID, log)
		staleSweeper = sweeper.NewSweeper(&cfg.Sweeper, transactionRepo, mpesaClient, reconciler, pool, log)
	} else {
		log.Info("Stale pending sweeper disabled")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	if staleSweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			staleSweeper.Start(appCtx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if pool != nil {
		pool.Shutdown()
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing transaction event Kafka producer", "error", err)
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

	if err != nil {
		log.Error("Reconciliation Worker shutdown completed with errors")
	} else {
		log.Info("Reconciliation Worker shutdown completed successfully")
	}
}
