package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corepay-ledger/internal/api"
	"github.com/corepay-ledger/internal/budget"
	"github.com/corepay-ledger/internal/config"
	mongorepo "github.com/corepay-ledger/internal/data/mongo"
	"github.com/corepay-ledger/internal/data/postgres"
	"github.com/corepay-ledger/internal/engine"
	"github.com/corepay-ledger/internal/logger"
	"github.com/corepay-ledger/internal/platform/persistence"
	"github.com/corepay-ledger/internal/reconciler"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting API server",
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
	if err = mongoDB.EnsureReconciliationIndexes(appCtx); err != nil {
		log.Error("Failed to create MongoDB indexes", "error", err)
		os.Exit(1)
	}

	// PostgreSQL repositories
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	allocationRepo := postgres.NewAllocationRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// MongoDB repositories
	paymentRepo := mongorepo.NewPaymentRepository(log, mongoDB.Database())
	logbookRepo := mongorepo.NewLogbookRepository(log, mongoDB.Database())
	matchRepo := mongorepo.NewMatchRepository(log, mongoDB.Database())

	balanceEngine := engine.NewBalanceEngine(log, postgresDB, balanceRepo, ledgerRepo, outboxRepo)
	allocationManager := budget.NewAllocationManager(log, postgresDB, allocationRepo, balanceRepo, ledgerRepo, outboxRepo)

	reconcilerService, err := reconciler.NewService(log, cfg.Reconciliation, cfg.WorkerPool.Size, paymentRepo, logbookRepo, matchRepo)
	if err != nil {
		log.Error("Failed to initialize reconciliation service", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(log, cfg, balanceEngine, allocationManager, reconcilerService)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}

	reconcilerService.Shutdown()

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("API server shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("API server shutdown completed successfully")
}
