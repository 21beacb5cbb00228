package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juggajay/site-proof-sub006/docs"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/auth"
	"github.com/juggajay/site-proof-sub006/internal/config"
	"github.com/juggajay/site-proof-sub006/internal/database"
	"github.com/juggajay/site-proof-sub006/internal/http/handler"
	"github.com/juggajay/site-proof-sub006/internal/http/middleware"
	"github.com/juggajay/site-proof-sub006/internal/http/router"
	"github.com/juggajay/site-proof-sub006/internal/jobs"
	"github.com/juggajay/site-proof-sub006/internal/logger"
	"github.com/juggajay/site-proof-sub006/internal/notify"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"github.com/juggajay/site-proof-sub006/internal/storage"
	"go.uber.org/zap"
)

// @title SiteProof Quality API
// @version 1.0
// @description Quality assurance workflows for civil construction projects: lots, NCRs, ITPs, hold points, dockets and drawings.

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// staging/production pull secrets from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	repos := repository.NewRepositories(db)
	notificationRepo := repository.NewNotificationRepository(db)

	orch := service.NewOrchestrator(db, log)
	guard := service.NewGuard(access.NewEvaluator(access.DefaultMatrix()), log)

	identityService := service.NewIdentityService(repos, log)
	projectService := service.NewProjectService(orch, guard, log)
	lotService := service.NewLotService(orch, guard, log)
	ncrService := service.NewNCRService(orch, guard, log)
	itpService := service.NewITPService(orch, guard, log)
	holdPointService := service.NewHoldPointService(orch, guard, log)
	docketService := service.NewDocketService(orch, guard, log)
	drawingService := service.NewDrawingService(orch, guard, fileStorage, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	auditLogService := service.NewAuditLogService(orch, guard, log)

	tokens := auth.NewTokenService(&cfg.Auth)
	authMiddleware := auth.NewMiddleware(tokens, identityService, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, router.Handlers{
		Auth:         handler.NewAuthHandler(identityService, log),
		Project:      handler.NewProjectHandler(projectService, log),
		Lot:          handler.NewLotHandler(lotService, log),
		NCR:          handler.NewNCRHandler(ncrService, log),
		ITP:          handler.NewITPHandler(itpService, log),
		HoldPoint:    handler.NewHoldPointHandler(holdPointService, log),
		Docket:       handler.NewDocketHandler(docketService, log),
		Drawing:      handler.NewDrawingHandler(drawingService, cfg.Storage.MaxUploadSizeMB, log),
		Notification: handler.NewNotificationHandler(notificationService, log),
		Audit:        handler.NewAuditHandler(auditLogService, log),
	})

	// notification outbox delivery
	var scheduler *jobs.Scheduler
	if cfg.Outbox.Enabled {
		scheduler = jobs.NewScheduler(log)
		outbox := jobs.NewOutboxJob(notificationRepo, notify.NewLogNotifier(log), log, jobs.OutboxOptions{
			BatchSize:   cfg.Outbox.BatchSize,
			MaxAttempts: cfg.Outbox.MaxAttempts,
			Retention:   cfg.Outbox.RetentionDuration(),
			Timeout:     cfg.Outbox.TimeoutDuration(),
		})
		if err := jobs.RegisterOutboxJobs(scheduler, outbox, cfg.Outbox.DispatchCron, cfg.Outbox.PurgeCron); err != nil {
			return fmt.Errorf("failed to register outbox jobs: %w", err)
		}
		scheduler.Start()
		log.Info("Scheduler started",
			zap.Strings("jobs", scheduler.JobNames()),
			zap.String("dispatch_cron", cfg.Outbox.DispatchCron),
			zap.String("purge_cron", cfg.Outbox.PurgeCron),
		)
	} else {
		log.Info("Notification outbox disabled; notifications stay in-app only")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           rt.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		log.Info("Server stopped gracefully")
	}

	return nil
}
