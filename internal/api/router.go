package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"unifiedinbox/internal/ratelimit"
	"unifiedinbox/pkg/otel"
)

// ReadyCheck reports whether the server's dependencies are usable.
type ReadyCheck func(ctx context.Context) error

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	categorizeHandler *CategorizeHandler,
	ruleHandler *RuleHandler,
	limiter *ratelimit.Limiter,
	jwtSecret string,
	ready ReadyCheck,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if limiter != nil {
		api.Use(RateLimitMiddleware(limiter))
	}
	{
		api.POST("/categorize", categorizeHandler.Categorize)
		api.POST("/categorize/bulk", categorizeHandler.CategorizeBulk)
		api.POST("/categorize/batch", categorizeHandler.ProcessBatch)
		api.POST("/categorize/raw", categorizeHandler.CategorizeRaw)
		api.GET("/categories", categorizeHandler.ListCategories)

		api.GET("/rules", ruleHandler.ListRules)
	}

	// Rule mutations; protected only when a secret is configured
	mutate := api.Group("/rules")
	if jwtSecret != "" {
		mutate.Use(AuthMiddleware(jwtSecret))
	}
	{
		mutate.POST("", ruleHandler.CreateRule)
		mutate.PATCH("/:ruleId", ruleHandler.UpdateRule)
		mutate.DELETE("/:ruleId", ruleHandler.DeleteRule)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
