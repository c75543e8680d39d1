package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chantier_crm_backend/internal/adapters"
	"chantier_crm_backend/internal/adapters/storage"
	"chantier_crm_backend/internal/documents"
	"chantier_crm_backend/internal/email"
	"chantier_crm_backend/internal/events"
	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/internal/http/router"
	"chantier_crm_backend/internal/invoices"
	"chantier_crm_backend/internal/notification"
	"chantier_crm_backend/internal/planning"
	"chantier_crm_backend/internal/prospects"
	"chantier_crm_backend/internal/scheduler"
	"chantier_crm_backend/migrations"
	"chantier_crm_backend/platform/config"
	"chantier_crm_backend/platform/db"
	"chantier_crm_backend/platform/logger"
	"chantier_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	sender := email.NewSenderFromConfig(cfg)

	// Document storage (MinIO). Uploads are rejected when disabled, the rest
	// of the pipeline keeps working.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		bucket := cfg.GetMinioBucketDocuments()
		if err := withRetry(ctx, log, "ensure documents bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized", "documentsBucket", bucket)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; document uploads disabled")
	}

	followupScheduler, closeScheduler := initFollowupScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	documentsModule := documents.NewModule(pool, storageSvc, cfg.GetMinioBucketDocuments(), val)

	// Pipeline dispatcher sends quote/invoice emails with the stored PDF
	// attached; gated stage moves commit only after it succeeds.
	dispatcher := adapters.NewPipelineDispatcher(sender, documentsModule.Service())
	prospectsModule := prospects.NewModule(pool, dispatcher, dispatcher, eventBus, val, log, cfg)
	prospectsModule.Service().SetDocumentFinder(adapters.NewDocumentFinder(documentsModule.Service()))

	invoicesModule := invoices.NewModule(pool, eventBus, val, log)
	planningModule := planning.NewModule(pool, val)

	if followupScheduler != nil {
		prospectsModule.Service().SetFollowupScheduler(followupScheduler)
		planningModule.Service().SetReminderScheduler(followupScheduler)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			prospectsModule,
			invoicesModule,
			documentsModule,
			planningModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initFollowupScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up and visit reminders disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
