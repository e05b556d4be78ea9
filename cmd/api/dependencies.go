package api

import (
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/charge-analytics/internal/domain/charging"
	charginghandler "github.com/FACorreiaa/charge-analytics/internal/domain/charging/handler"
	importhandler "github.com/FACorreiaa/charge-analytics/internal/domain/import/handler"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"

	"github.com/FACorreiaa/charge-analytics/pkg/config"
	"github.com/FACorreiaa/charge-analytics/pkg/cron"
	"github.com/FACorreiaa/charge-analytics/pkg/metrics"
	"github.com/FACorreiaa/charge-analytics/pkg/middleware"
	"github.com/FACorreiaa/charge-analytics/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Infrastructure
	FileStorage *storage.TempStore
	Scheduler   *cron.Scheduler
	RateLimiter *middleware.RateLimiter

	// Services
	Processor       *importservice.Processor
	ChargingService *charging.Service

	// Handlers
	ChargingHandler *charginghandler.ChargingHandler
	ImportHandler   *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	if err := deps.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initStorage prepares the upload staging area, the per-client rate limiter
// and the janitor that sweeps both.
func (d *Dependencies) initStorage() error {
	store, err := storage.NewTempStore(d.Config.Upload.TempDir)
	if err != nil {
		return err
	}
	d.FileStorage = store
	d.Scheduler = cron.NewScheduler(d.Logger).
		Add("uploads", d.Config.Upload.SweepSchedule, store, d.Config.Upload.StaleAfter)

	if srv := d.Config.Server; srv.RateLimitPerSecond > 0 {
		d.RateLimiter = middleware.NewRateLimiter(float64(srv.RateLimitPerSecond), srv.RateLimitBurst, d.Logger)
		d.Scheduler.Add("rate_limit_clients", srv.RateLimitSweepSchedule, d.RateLimiter, srv.RateLimitIdleAfter)
	}

	d.Logger.Info("upload storage ready", slog.String("dir", store.Dir()))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	minimum, ok := normalizer.ParseQuality(d.Config.Analysis.MinimumQuality)
	if !ok {
		return fmt.Errorf("unknown minimum quality %q", d.Config.Analysis.MinimumQuality)
	}

	d.Processor = importservice.NewProcessor(d.Logger)
	d.ChargingService = charging.NewService(d.Processor, d.FileStorage, charging.Options{
		MaxUploadBytes: d.Config.Upload.MaxBytes,
		MinimumQuality: minimum,
		Currency:       d.Config.Analysis.Currency,
	}, d.Logger)

	if d.Metrics != nil {
		d.Processor.WithObserver(d.Metrics)
		d.ChargingService.WithObserver(d.Metrics)
	}

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ChargingHandler = charginghandler.NewChargingHandler(d.ChargingService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.Config.Upload.MaxBytes, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Start launches background jobs.
func (d *Dependencies) Start() error {
	return d.Scheduler.Start()
}

// Cleanup stops background jobs and waits for a running sweep to finish.
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}
