package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fibra-studio/fibra-core/internal/app"
	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/maintenance"
	"github.com/fibra-studio/fibra-core/internal/notify"
	"github.com/fibra-studio/fibra-core/internal/platform/cache"
	"github.com/fibra-studio/fibra-core/internal/platform/db"
	"github.com/fibra-studio/fibra-core/internal/shared"
	"github.com/fibra-studio/fibra-core/internal/users"
	"github.com/fibra-studio/fibra-core/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fibra_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	userRepo := users.NewRepository(dbpool)
	authService := auth.NewService(userRepo)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Directory: userRepo, Logger: logger}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	notifyRepo := notify.NewRepository(dbpool)
	notifyService := notify.NewService(notifyRepo, userRepo, jobs.NewQueueMailer(jobClient), logger, notify.Config{
		EmailEnabled:        cfg.EmailNotificationsEnabled,
		DefaultDedupeWindow: cfg.NotifyDedupeWindow,
	})
	notifyHandler := notify.NewHandler(logger, notifyService)

	maintenanceCfg := maintenance.Config{
		QualityScanInterval: cfg.QualityScanInterval,
		InvoiceSyncInterval: cfg.InvoiceSyncInterval,
		CatalogSeedInterval: cfg.CatalogSeedInterval,
		QualityDedupeWindow: cfg.QualityDedupeWindow,
	}
	maintenanceDeps := maintenance.Deps{
		Notifier: notifyService,
		Catalog:  maintenance.NewCatalogRepository(dbpool),
		Quality:  maintenance.NewQualityRepository(dbpool),
		Billing:  maintenance.NewBillingRepository(dbpool),
	}
	coordinator := maintenance.NewCoordinator(
		maintenance.NewGuardStore(),
		logger,
		maintenance.DefaultTasks(maintenanceCfg, maintenanceDeps),
	)
	maintenanceHandler := maintenance.NewHandler(coordinator)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthMiddleware:     authMiddleware,
		AuthHandler:        authHandler,
		NotifyHandler:      notifyHandler,
		MaintenanceHandler: maintenanceHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
