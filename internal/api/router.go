package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corepay-ledger/internal/api/handler"
	"github.com/corepay-ledger/internal/api/middleware"
)

func setupRouter(
	logger *slog.Logger,
	balances *handler.BalanceHandler,
	allocations *handler.AllocationHandler,
	reconciliation *handler.ReconciliationHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CorrelationID())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		balanceRoutes := v1.Group("/balances")
		{
			balanceRoutes.GET("/:entityId", balances.GetBalance)
			balanceRoutes.GET("/:entityId/transactions", balances.ListTransactions)
			balanceRoutes.POST("/credit", balances.Credit)
			balanceRoutes.POST("/debit", balances.Debit)
		}

		v1.POST("/transfers", balances.Transfer)

		allocationRoutes := v1.Group("/allocations")
		{
			allocationRoutes.POST("", allocations.Create)
			allocationRoutes.POST("/:allocationId/accept", allocations.Accept)
			allocationRoutes.POST("/:allocationId/reject", allocations.Reject)
			allocationRoutes.GET("/pending/:employeeId", allocations.ListPending)
		}

		reconciliationRoutes := v1.Group("/reconciliation")
		{
			reconciliationRoutes.POST("/run", reconciliation.Run)
			reconciliationRoutes.GET("/candidates", reconciliation.Candidates)
			reconciliationRoutes.POST("/matches", reconciliation.ManualMatch)
			reconciliationRoutes.GET("/stats", reconciliation.Stats)
		}
	}

	return router
}
