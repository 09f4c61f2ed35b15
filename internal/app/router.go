package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"settlement/internal/handler"
	"settlement/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SettlementHandler *handler.SettlementHandler
	RatePlanHandler   *handler.RatePlanHandler
	RedisClient       *redis.Client // nil disables idempotency
	NewRelicApp       *newrelic.Application
	JWTSecret         string
	Logger            *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.SettlementAttributes())
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.JWTAuth(deps.JWTSecret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, logger))
	{
		// Settlement routes.
		v1.POST("/settlements", deps.SettlementHandler.Settle)

		// Rate plan routes.
		plan := v1.Group("/rate-plan")
		{
			plan.GET("", deps.RatePlanHandler.Get)
			plan.PUT("/rates/:category", deps.RatePlanHandler.SetRate)
			plan.DELETE("/rates/:category", deps.RatePlanHandler.DeleteRate)
			plan.PUT("/statuses/:code", deps.RatePlanHandler.SetStatus)
		}
	}

	return router
}
