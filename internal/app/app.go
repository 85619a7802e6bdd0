// Package app provides the main application struct for centralized
// dependency management and lifecycle control of the realtors server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/manny2375/2020realtorsblue-sub000/config"
	"github.com/manny2375/2020realtorsblue-sub000/internal/alerts"
	"github.com/manny2375/2020realtorsblue-sub000/internal/analytics"
	"github.com/manny2375/2020realtorsblue-sub000/internal/auth"
	"github.com/manny2375/2020realtorsblue-sub000/internal/cache"
	"github.com/manny2375/2020realtorsblue-sub000/internal/catalog"
	"github.com/manny2375/2020realtorsblue-sub000/internal/email"
	"github.com/manny2375/2020realtorsblue-sub000/internal/favorites"
	"github.com/manny2375/2020realtorsblue-sub000/internal/inquiry"
	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
	"github.com/manny2375/2020realtorsblue-sub000/internal/ratelimit"
	"github.com/manny2375/2020realtorsblue-sub000/internal/server"
	"github.com/manny2375/2020realtorsblue-sub000/internal/storage"
)

// App represents the application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	store    storage.Storage
	kvStore  kv.Store
	recorder *email.Recorder
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates an App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &App{config: cfg}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.store = store

	kvStore, err := newKV(cfg)
	if err != nil {
		closeErr := store.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize key-value store: %w (also: storage close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize key-value store: %w", err)
	}
	app.kvStore = kvStore

	sharedCache := cache.New(kvStore)

	authStore, err := auth.NewStore(store)
	if err != nil {
		return nil, app.failInit("auth store", err)
	}
	authenticator := auth.NewAuthenticator(authStore,
		auth.NewSessionCache(sharedCache, cfg.Session.TTL), cfg.Session.TTL)

	catalogStore, err := catalog.NewStore(store)
	if err != nil {
		return nil, app.failInit("catalog store", err)
	}
	catalogSvc := catalog.NewService(catalogStore, sharedCache)

	favStore, err := favorites.NewStore(store)
	if err != nil {
		return nil, app.failInit("favorites store", err)
	}

	emailStore, err := email.NewStore(store)
	if err != nil {
		return nil, app.failInit("email store", err)
	}
	app.recorder = email.NewRecorder(emailStore, email.RecorderConfig{})
	emailSvc := email.NewService(newSender(cfg), emailStore, app.recorder, cfg.Email.SiteName)

	inquiryStore, err := inquiry.NewStore(store)
	if err != nil {
		return nil, app.failInit("inquiry store", err)
	}
	inquirySvc := inquiry.NewService(inquiryStore, emailSvc, catalogSvc)

	alertStore, err := alerts.NewStore(store)
	if err != nil {
		return nil, app.failInit("alerts store", err)
	}
	alertSvc := alerts.NewService(alertStore, emailSvc, authStore)

	analyticsStore, err := analytics.NewStore(store)
	if err != nil {
		return nil, app.failInit("analytics store", err)
	}
	analyticsSvc := analytics.NewService(analyticsStore, sharedCache)

	app.logStartupInfo()

	app.server = server.New(server.Deps{
		Auth:      authenticator,
		Catalog:   catalogSvc,
		Favorites: favStore,
		Inquiries: inquirySvc,
		Alerts:    alertSvc,
		Email:     emailSvc,
		Analytics: analyticsSvc,
		Limiter:   ratelimit.New(kvStore),
		KV:        kvStore,
	}, &server.Config{
		BodyLimit: cfg.Server.BodyLimit,
	})

	return app, nil
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Server exposes the HTTP server for tests.
func (a *App) Server() *server.Server {
	return a.server
}

// Shutdown gracefully tears down app components in dependency order:
// HTTP server first (stop accepting requests), then the notification
// recorder (flush pending records), then the key-value store, then
// durable storage.
//
// Shutdown is idempotent and safe for repeated calls. It attempts every
// close step, aggregates failures, and returns a joined error if any
// step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			slog.Error("notification recorder close error", "error", err)
			errs = append(errs, fmt.Errorf("recorder close: %w", err))
		}
	}

	if a.kvStore != nil {
		if err := a.kvStore.Close(); err != nil {
			slog.Error("key-value store close error", "error", err)
			errs = append(errs, fmt.Errorf("kv close: %w", err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("storage close error", "error", err)
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// failInit closes what is already open and wraps the failing step.
func (a *App) failInit(step string, err error) error {
	var closeErrs []error
	if a.recorder != nil {
		closeErrs = append(closeErrs, a.recorder.Close())
	}
	if a.kvStore != nil {
		closeErrs = append(closeErrs, a.kvStore.Close())
	}
	if a.store != nil {
		closeErrs = append(closeErrs, a.store.Close())
	}
	if closeErr := errors.Join(closeErrs...); closeErr != nil {
		return fmt.Errorf("failed to initialize %s: %w (also: close error: %v)", step, err, closeErr)
	}
	return fmt.Errorf("failed to initialize %s: %w", step, err)
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "postgresql":
		return storage.NewPostgreSQL(ctx, storage.PostgreSQLConfig{URL: cfg.Storage.PostgresURL})
	default:
		return storage.NewSQLite(storage.SQLiteConfig{Path: cfg.Storage.SQLitePath})
	}
}

func newKV(cfg *config.Config) (kv.Store, error) {
	if cfg.Redis.URL == "" {
		slog.Info("redis not configured, using in-process key-value store")
		return kv.NewMemoryStore(), nil
	}
	return kv.NewRedisStore(kv.RedisConfig{
		URL:       cfg.Redis.URL,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.Email.SendGridAPIKey == "" {
		slog.Warn("SENDGRID_API_KEY not set, email delivery is log-only")
		return email.LogSender{}
	}
	return email.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	slog.Info("storage configured", "type", cfg.Storage.Type)

	if cfg.Redis.URL != "" {
		slog.Info("redis cache enabled")
	}

	if cfg.Email.SendGridAPIKey != "" {
		slog.Info("transactional email enabled",
			"from", cfg.Email.FromEmail,
			"site", cfg.Email.SiteName,
		)
	}
}
