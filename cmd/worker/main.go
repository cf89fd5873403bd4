package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fibra-studio/fibra-core/internal/app"
	"github.com/fibra-studio/fibra-core/internal/maintenance"
	"github.com/fibra-studio/fibra-core/internal/notify"
	"github.com/fibra-studio/fibra-core/internal/platform/db"
	"github.com/fibra-studio/fibra-core/internal/users"
	"github.com/fibra-studio/fibra-core/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	emailJob := jobs.NewSendEmailJob(mailer, logger)

	// The sweep only gets the globally keyed tasks: without an invoking
	// user the per-user data-quality scans have no recipient.
	userRepo := users.NewRepository(dbpool)
	notifyRepo := notify.NewRepository(dbpool)
	notifyService := notify.NewService(notifyRepo, userRepo, mailer, logger, notify.Config{
		EmailEnabled:        cfg.EmailNotificationsEnabled,
		DefaultDedupeWindow: cfg.NotifyDedupeWindow,
	})
	sweepCfg := maintenance.Config{
		QualityScanInterval: cfg.QualityScanInterval,
		InvoiceSyncInterval: cfg.InvoiceSyncInterval,
		CatalogSeedInterval: cfg.CatalogSeedInterval,
		QualityDedupeWindow: cfg.QualityDedupeWindow,
	}
	sweepDeps := maintenance.Deps{
		Notifier: notifyService,
		Catalog:  maintenance.NewCatalogRepository(dbpool),
		Quality:  maintenance.NewQualityRepository(dbpool),
		Billing:  maintenance.NewBillingRepository(dbpool),
	}
	sweepCoordinator := maintenance.NewCoordinator(
		maintenance.NewGuardStore(),
		logger,
		maintenance.SweepTasks(sweepCfg, sweepDeps),
	)
	sweepJob := jobs.NewMaintenanceSweepJob(sweepCoordinator, logger)

	var cron []jobs.CronRegistration
	if cfg.MaintenanceSweepSpec != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.MaintenanceSweepSpec,
			Task:    jobs.NewMaintenanceSweepTask(),
			Options: []asynq.Option{asynq.MaxRetry(1)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: emailJob.Handle},
			{Type: jobs.TaskTypeMaintenanceSweep, Handler: sweepJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
