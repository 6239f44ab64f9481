package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/modules/billing"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/webhook"
	"github.com/ctenarsky-denik/journal/internal/modules/content/book"
	"github.com/ctenarsky-denik/journal/internal/modules/processing/ai"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
)

const (
	apiPrefix = "/api/v1"
	// requests per second per caller
	rateLimitPerSecond = 20
)

var appInfo = gin.H{
	"name":    "ctenarsky-denik",
	"version": "1.0.0",
}

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(a.tokens))
	if rc := a.redisClient(); rc != nil {
		api.Use(middleware.RateLimit(rc, rateLimitPerSecond, a.logger))
		api.Use(middleware.Idempotence(rc, middleware.IdempotenceRules{
			// Provider retries must reach the reconciler.
			Skip: []string{apiPrefix + "/billing/webhook"},
			// Repeats are cache hits or fresh receipts.
			HeaderOnly: []string{
				apiPrefix + "/ai/summaries/book",
				apiPrefix + "/ai/summaries/author",
				apiPrefix + "/ai/credits/consume",
			},
		}))
	}
	authMW := middleware.Auth(a.tokens)

	// Infrastructure
	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/health", a.health)

	// Library
	book.NewHandler(a.library).RegisterRoutes(api, authMW)

	// Generation
	ai.NewHandler(a.pipeline, a.ledger, a.library, a.logger).RegisterRoutes(api, authMW)

	// Billing
	billing.NewHandler(a.ledger, a.stripe, a.prices, billing.URLs{
		Success: a.cfg.Billing.SuccessURL,
		Cancel:  a.cfg.Billing.CancelURL,
	}, a.logger).RegisterRoutes(api, authMW)
	reconciler := webhook.NewReconciler(a.ledger, a.stripe, a.prices, a.logger)
	webhook.NewHandler(a.stripe, reconciler, a.logger).RegisterRoutes(api)
}

// GET /health
func (a *App) health(c *gin.Context) {
	checks := a.stores.Ping(c.Request.Context())
	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
		}
	}
	uptime := time.Since(processStart)
	c.JSON(status, gin.H{
		"ok":       status == http.StatusOK,
		"checks":   checks,
		"uptime":   uptime.Milliseconds(),
		"humanize": humanizeDuration(uptime),
		"jobs":     a.sched.List(),
	})
}
