// Package app wires configuration, database, storage and services into one
// value shared by the API server and the sitectl tool.
package app

import (
	"fmt"
	"log/slog"

	"grahalia-estates/internal/auth"
	"grahalia-estates/internal/catalog"
	"grahalia-estates/internal/cleanup"
	"grahalia-estates/internal/config"
	"grahalia-estates/internal/database"
	"grahalia-estates/internal/gallery"
	"grahalia-estates/internal/handlers"
	"grahalia-estates/internal/history"
	"grahalia-estates/internal/leads"
	"grahalia-estates/internal/listing"
	"grahalia-estates/internal/notify"
	"grahalia-estates/internal/ratelimit"
	"grahalia-estates/internal/scheduler"
	"grahalia-estates/internal/search"
	"grahalia-estates/internal/storage"
)

// App holds every long-lived component of the site
type App struct {
	Config   *config.Config
	DB       *database.GormDB
	Store    *storage.Store
	Services handlers.Services
	Logger   *slog.Logger
}

// New opens the database, migrates it, seeds the feature catalog and builds
// the services. Background jobs are created but not started.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	gormDB, err := database.NewGormDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := gormDB.InitSchema(); err != nil {
		gormDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if n, err := database.SeedFeatures(gormDB.DB(), database.DefaultFeatures); err != nil {
		gormDB.Close()
		return nil, err
	} else if n > 0 {
		logger.Info("features seeded", "count", n)
	}

	store, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicPath)
	if err != nil {
		gormDB.Close()
		return nil, err
	}

	a := &App{Config: cfg, DB: gormDB, Store: store, Logger: logger}
	a.Services, err = buildServices(cfg, gormDB, store, logger)
	if err != nil {
		gormDB.Close()
		return nil, err
	}
	logger.Info("application initialized",
		"driver", gormDB.Driver(),
		"uploads", cfg.Uploads.Dir,
		"search_enabled", a.Services.Search.Enabled(),
		"mail_enabled", cfg.Mail.MailEnabled())
	return a, nil
}

func buildServices(cfg *config.Config, gormDB *database.GormDB, store *storage.Store, logger *slog.Logger) (handlers.Services, error) {
	db := gormDB.DB()

	loginLimiter := ratelimit.NewRateLimiter(cfg.Admin.LoginPerMinute, cfg.Admin.LoginPerHour, true)
	authenticator, err := auth.New(cfg.Admin, cfg.IsProduction(), loginLimiter, logger)
	if err != nil {
		return handlers.Services{}, err
	}

	leadLimiter := ratelimit.NewLeadLimiter(db, cfg.Leads.RateLimitMax, cfg.Leads.RateLimitWindow())
	outbox := notify.NewOutbox(db, logger)
	worker := notify.NewWorker(db, notify.NewMailer(cfg.Mail), cfg.Mail.PollInterval(), cfg.Mail.MaxAttempts, logger)

	searchSvc := search.New(db, cfg.Search.Meilisearch, logger)
	cleanupSvc := cleanup.NewService(db, store, leadLimiter, logger)

	return handlers.Services{
		Catalog:   catalog.NewService(db, cfg.Catalog, cfg.Uploads.Placeholder),
		Listings:  listing.NewService(db, store, searchSvc, logger),
		Gallery:   gallery.NewService(db, store, logger),
		Leads:     leads.NewService(db, leadLimiter, outbox, cfg.Leads, cfg.Admin.Email, logger),
		History:   history.NewService(db),
		Cleanup:   cleanupSvc,
		Search:    searchSvc,
		Outbox:    outbox,
		Worker:    worker,
		Scheduler: scheduler.NewScheduler(cleanupSvc, searchSvc, cfg.Maintenance, logger),
		Auth:      authenticator,
		Store:     store,
	}, nil
}

// RouterOptions derives router options from the config
func (a *App) RouterOptions() handlers.Options {
	return handlers.Options{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		MaxUploadBytes: a.Config.Server.MaxUploadBytes(),
		LogRequests:    a.Config.Logging.LogRequests,
		FeaturedLimit:  a.Config.Catalog.FeaturedLimit,
		TrustedProxies: a.Config.Server.TrustedProxies,
	}
}

// Close releases the database connection
func (a *App) Close() error {
	return a.DB.Close()
}
