// Package api wires the HTTP surface of the service: router, middleware
// and handlers for balances, allocations and reconciliation.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/api/handler"
	"github.com/corepay-ledger/internal/budget"
	"github.com/corepay-ledger/internal/config"
	"github.com/corepay-ledger/internal/engine"
	"github.com/corepay-ledger/internal/reconciler"
)

// Server wraps the HTTP server and its router
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	router     *gin.Engine
}

// NewServer builds the router and the underlying http.Server from config
func NewServer(
	logger *slog.Logger,
	cfg *config.Config,
	eng engine.BalanceEngine,
	allocations budget.AllocationManager,
	reconciliations *reconciler.Service,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	balanceHandler := handler.NewBalanceHandler(logger, eng)
	allocationHandler := handler.NewAllocationHandler(logger, allocations)
	reconciliationHandler := handler.NewReconciliationHandler(logger, reconciliations)

	router := setupRouter(logger, balanceHandler, allocationHandler, reconciliationHandler)

	return &Server{
		logger: logger,
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

// Start begins listening for requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server, draining in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
