package payment_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/handler"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health endpoint checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	stkHandler *handler.STKHandler,
	callbackHandler *handler.CallbackHandler,
	transactionHandler *handler.TransactionHandler,
	checks map[string]Pinger,
) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(handler.RespondMethodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		handler.RespondNotFound(c, "")
	})

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		stk := v1.Group("/stk")
		{
			stk.POST("/push", stkHandler.Push)
			stk.POST("/callback", callbackHandler.Receive)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:checkoutRequestID", transactionHandler.GetByID)
			transactions.GET("/:checkoutRequestID/callbacks", transactionHandler.GetCallbacks)
		}
	}

	r.GET("/health", healthHandler(checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func healthHandler(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results, "timestamp": time.Now().UTC()})
	}
}
