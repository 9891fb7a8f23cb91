package main

import (
	"context"

	"github.com/devcollab/platform/backend/internal/config"
	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/handlers"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/internal/services"
	"github.com/devcollab/platform/backend/internal/utils"
	"github.com/devcollab/platform/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg            *config.Config
	hub            *eventstore.Hub
	publisher      services.Publisher
	worker         *services.Worker
	cleanupService *services.CleanupService
	authHandler    *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, event hub,
// publisher, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Start retention cleanup scheduler
	cleanupService := services.NewCleanupService(models.GetDB(), &cfg.Cleanup)
	cleanupService.StartScheduler()

	// Event hub reads documents straight from the database
	hub := eventstore.NewHub(services.NewDBLoader(models.GetDB()))

	// Republish pipeline: every committed mutation funnels through the
	// publisher; only the processor below touches the hub.
	republish := func(_ context.Context, job *services.RepublishJob) error {
		hub.Publish(job.Collection)
		return nil
	}

	publisher := services.InitPublisher(cfg)
	if syncPublisher, ok := publisher.(*services.SyncPublisher); ok {
		syncPublisher.SetProcessor(republish)
	}

	worker := startWorker(cfg, publisher, republish)

	// Create default admin user
	authService := services.NewAuthService(models.GetDB(), &cfg.JWT, &cfg.LDAP)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:            cfg,
		hub:            hub,
		publisher:      publisher,
		worker:         worker,
		cleanupService: cleanupService,
		authHandler:    handlers.NewAuthHandler(models.GetDB(), cfg),
	}
}

// startWorker spins up the asynq consumer, but only when the publisher is
// actually enqueueing to Redis. When the publisher fell back to sync mode
// (Redis configured but unreachable) there is nothing to consume and the
// worker would only hammer the dead connection.
func startWorker(cfg *config.Config, publisher services.Publisher, processor func(context.Context, *services.RepublishJob) error) *services.Worker {
	if !cfg.Redis.Enabled || !publisher.IsAsync() {
		return nil
	}

	worker := services.InitWorker(&cfg.Redis)
	if worker != nil {
		worker.SetProcessor(processor)
		worker.Start()
	}
	return worker
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanupService.StopScheduler()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	logger.Info().Msg("All background services stopped")
}
