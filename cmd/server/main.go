package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "gptcatalog/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"gptcatalog/internal/auth"
	"gptcatalog/internal/cache"
	"gptcatalog/internal/catalog"
	"gptcatalog/internal/config"
	"gptcatalog/internal/db"
	"gptcatalog/internal/gate"
	"gptcatalog/internal/handler"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/metrics"
	"gptcatalog/internal/ratelimit"
	"gptcatalog/internal/repository"
	"gptcatalog/internal/router"
	"gptcatalog/internal/service"
)

// @title GPT Catalog API
// @version 1.0
// @description Gated GPT catalog with invite and payment driven access tiers.
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error("database init", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("database migrate", "error", err)
		os.Exit(1)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Error("database handle", "error", err)
		os.Exit(1)
	}

	// Redis is optional. When it is down at startup it stays disabled: a nil
	// cache behaves as always empty and the limiter keeps counters in memory.
	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	var sharedCache *cache.Client
	var redisPinger handler.Pinger
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, running without shared cache", "addr", cfg.RedisAddr, "error", err)
	} else {
		sharedCache = cacheClient
		redisPinger = cacheClient
	}
	cancelPing()

	m := metrics.New()

	codec, err := auth.NewTokenCodec(cfg.JWTSecret, auth.WithLogger(log))
	if err != nil {
		log.Error("token codec", "error", err)
		os.Exit(1)
	}
	hasher := auth.NewPasswordHasher(0)

	// Initialize repositories
	users := repository.NewUserRepository(gormDB)
	invites := repository.NewInviteRepository(gormDB)
	events := repository.NewPaymentEventRepository(gormDB)

	// Initialize services
	recorder := service.NewEventRecorder(events, log)
	profiles := service.NewUserService(users, sharedCache)
	authService := service.NewAuthService(users, invites, codec, hasher, log, service.WithAuthRecorder(m))
	transitions, err := service.NewRoleTransitionService(cfg.HotmartSecret, users, cache.NewDeliveryStore(sharedCache), recorder, log,
		service.WithProfileCache(profiles), service.WithWebhookRecorder(m))
	if err != nil {
		log.Error("role transitions", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Warn("catalog not loaded, serving an empty catalog", "path", cfg.CatalogPath, "error", err)
		cat = catalog.Empty()
	} else {
		log.Info("catalog loaded", "categories", len(cat.Categories()), "gpts", cat.Count())
	}

	policy := gate.DefaultPolicy()
	if cfg.GateFallback == "deny" {
		policy = policy.WithFallback(gate.RedirectPaywall)
	}
	accessGate := gate.New(codec,
		gate.WithPolicy(policy),
		gate.WithLogger(log),
		gate.WithRecorder(m),
	)

	authLimiter, err := ratelimit.New(cfg.AuthRateLimit, sharedCache.Redis(), log, m)
	if err != nil {
		log.Error("rate limiter", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, log, codec, accessGate, authLimiter, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, !cfg.IsDevelopment(), log),
		User:    handler.NewUserHandler(profiles, log),
		Webhook: handler.NewWebhookHandler(transitions, log),
		Page:    handler.NewPageHandler(cat, codec, cfg.CheckoutURL),
		Health:  handler.NewHealthHandler(handler.PingFunc(sqlDB.PingContext), redisPinger),
		Metrics: m.Handler(),
	})

	addr := ":" + cfg.ServerPort
	go func() {
		log.Info("server listening", "addr", addr, "env", cfg.Env, "swagger", "/api/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Debug("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	recorder.Close()
	if err := cacheClient.Close(); err != nil {
		log.Warn("redis close", "error", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close", "error", err)
	}
	log.Info("server stopped")
}
