package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ctenarsky-denik/journal/internal/config"
	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/webhook"
	"github.com/ctenarsky-denik/journal/internal/modules/content/book"
	"github.com/ctenarsky-denik/journal/internal/modules/processing/ai"
	pkgcron "github.com/ctenarsky-denik/journal/internal/pkg/cron"
	"github.com/ctenarsky-denik/journal/internal/pkg/jwt"
	pkgredis "github.com/ctenarsky-denik/journal/internal/pkg/redis"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
	stores *Stores

	tokens   *jwt.Manager
	ledger   *quota.Ledger
	library  *book.Service
	pipeline *ai.Pipeline
	stripe   *webhook.StripeGateway
	prices   webhook.Prices
}

// New initializes the application: settings, stores, services, routes, jobs.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt_secret: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	completer, err := ai.CompleterFor(cfg.AI)
	if err != nil {
		cancel()
		stores.Close(context.Background())
		return nil, fmt.Errorf("ai provider: %w", err)
	}
	if _, ok := cfg.AI.ActiveProvider(); !ok {
		logger.Warn("no AI provider configured, generation requests will fail")
	}
	if cfg.Billing.StripeSecretKey == "" {
		logger.Warn("billing.stripe_secret_key is empty, checkout and webhooks are unavailable")
	}

	ledger := stores.Ledger(cfg, logger)
	a := &App{
		cfg:     cfg,
		logger:  logger,
		cancel:  cancel,
		stores:  stores,
		tokens:  tokens,
		ledger:  ledger,
		library: book.NewService(stores.Books, ledger, logger),
		pipeline: ai.NewPipeline(ledger, stores.Cache(cfg), completer, ai.Options{
			Models: ai.Models{
				Cheap:   cfg.AI.Models.Cheap,
				Medium:  cfg.AI.Models.Medium,
				Premium: cfg.AI.Models.Premium,
			},
			TTLs:           ai.TTLs{Book: cfg.Cache.BookTTL, Author: cfg.Cache.AuthorTTL},
			AttemptTimeout: cfg.AI.AttemptTimeout,
			MaxNoteChars:   cfg.AI.MaxNoteChars,
		}, logger),
		stripe: webhook.NewStripeGateway(cfg.Billing.StripeSecretKey, cfg.Billing.WebhookSecret),
		prices: webhook.NewPrices(cfg.Billing.Prices),
	}

	a.sched = pkgcron.New(time.Local, logger)
	if err := registerCronJobs(a.sched, ledger, logger); err != nil {
		cancel()
		stores.Close(context.Background())
		return nil, err
	}
	a.sched.Start(ctx)

	a.router = a.newRouter()
	a.registerRoutes()
	return a, nil
}

func (a *App) newRouter() *gin.Engine {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.logger))
	router.Use(corsMiddleware(a.cfg))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes the stores.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()
	a.stores.Close(ctx)
}

var processStart = time.Now()

// redisClient returns the shared client or nil when Redis is not configured.
func (a *App) redisClient() *pkgredis.Client {
	return a.stores.Redis
}
