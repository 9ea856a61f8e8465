package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hamzaiqbal/crmconnect/internal/api"
	"github.com/hamzaiqbal/crmconnect/internal/api/handlers"
	"github.com/hamzaiqbal/crmconnect/internal/auth"
	"github.com/hamzaiqbal/crmconnect/internal/cache"
	"github.com/hamzaiqbal/crmconnect/internal/channel"
	"github.com/hamzaiqbal/crmconnect/internal/config"
	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/database"
	"github.com/hamzaiqbal/crmconnect/internal/otp"
	"github.com/hamzaiqbal/crmconnect/internal/queue"
	"github.com/hamzaiqbal/crmconnect/internal/store"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
	"github.com/hamzaiqbal/crmconnect/internal/store/postgres"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
	"github.com/hamzaiqbal/crmconnect/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Database connection (optional: fall back to the in-memory store for
	// local development)
	var st store.Store
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, using in-memory store", "error", err)
		st = memory.New()
		db = nil
	} else {
		defer db.Close()
		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		st = postgres.New(db)
	}

	// Redis connection (optional)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisUp := rdb.Ping(ctx).Err() == nil
	if !redisUp {
		slog.Warn("redis unavailable, using in-process dedup and dispatch")
	}
	defer rdb.Close()

	tenants := tenant.NewService(st, logger)

	if cfg.Bootstrap.SuperadminEmail != "" && cfg.Bootstrap.SuperadminPassword != "" {
		hash, err := auth.HashPassword(cfg.Bootstrap.SuperadminPassword)
		if err != nil {
			slog.Error("hash superadmin password", "error", err)
			os.Exit(1)
		}
		if err := tenants.EnsureSuperadmin(ctx, cfg.Bootstrap.SuperadminEmail, hash); err != nil {
			slog.Error("bootstrap superadmin", "error", err)
			os.Exit(1)
		}
	}

	registry := channel.NewRegistry(st, logger)
	if err := registry.Warm(ctx); err != nil {
		slog.Warn("routing index warm-up failed, serving on store fallback", "error", err)
	}

	// Code delivery and event dispatch go through the queue when redis is
	// up; otherwise they run in-process.
	var sender otp.Sender
	var dispatcher conversation.Dispatcher
	var dedup webhook.Deduper
	if redisUp {
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		sender = qc
		dispatcher = qc
		dedup = webhook.NewRedisDeduper(cache.NewCache(rdb), cfg.Webhook.DedupWindow)
	} else {
		sender = otp.LogSender{Logger: logger}
		md := webhook.NewMemoryDeduper(cfg.Webhook.DedupWindow)
		defer md.Close()
		dedup = md
		if cfg.Dispatch.CollaboratorURL != "" {
			fwd := conversation.NewForwarder(cfg.Dispatch.CollaboratorURL,
				cfg.Dispatch.CollaboratorSecret, cfg.Dispatch.Timeout)
			async := conversation.NewAsyncDispatcher(fwd, 256, cfg.Dispatch.Timeout, logger)
			defer async.Close()
			dispatcher = async
		} else {
			dispatcher = conversation.DispatcherFunc(func(ctx context.Context, msg conversation.Message) error {
				logger.Info("no collaborator configured, dropping message",
					"tenant_id", msg.TenantID, "channel", msg.Channel, "message_id", msg.MessageID)
				return nil
			})
		}
	}

	codes := otp.NewService(st, sender, otp.Options{
		Digits:   cfg.OTP.Digits,
		TTL:      cfg.OTP.TTL,
		Cooldown: cfg.OTP.Cooldown,
	}, logger)

	webhooks := webhook.NewRouter(registry, tenants, dedup, dispatcher,
		cfg.Webhook.VerifyToken, logger)

	router := api.NewRouter(api.Deps{
		Cfg:      cfg,
		Tenants:  tenants,
		Codes:    codes,
		Registry: registry,
		Webhooks: webhooks,
		Health:   handlers.NewHealthHandler(db, rdb),
	})
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
