// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/api"
	"github.com/tomtom215/snapbooth/internal/audit"
	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/authz"
	"github.com/tomtom215/snapbooth/internal/backup"
	"github.com/tomtom215/snapbooth/internal/booth"
	"github.com/tomtom215/snapbooth/internal/compositor"
	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/events"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/mailer"
	"github.com/tomtom215/snapbooth/internal/storage"
	"github.com/tomtom215/snapbooth/internal/supervisor"
	"github.com/tomtom215/snapbooth/internal/supervisor/services"
	ws "github.com/tomtom215/snapbooth/internal/websocket"
)

const (
	eventBufferSize  = 256
	authzCacheSize   = 1024
	authzCacheTTL    = 5 * time.Minute
	revocationGCTick = 10 * time.Minute
	httpDrainTimeout = 10 * time.Second
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("storage", cfg.Storage.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Snapbooth with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	objects, err := storage.New(ctx, &cfg.Storage, cfg.Server.PublicURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	bus := events.NewBus(eventBufferSize)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	boothService, err := booth.NewService(cfg.Booth, booth.Deps{
		Store:      db,
		Objects:    objects,
		Compositor: compositor.New(objects, cfg.Booth.FrameCacheSize, cfg.Booth.FrameCacheTTL),
		Mailer:     mailer.New(cfg.SMTP),
		Events:     bus,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize booth service")
	}

	authService, revoked := initAuth(ctx, cfg, db)
	defer func() {
		if err := revoked.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation store")
		}
	}()

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		CacheSize: authzCacheSize,
		CacheTTL:  authzCacheTTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	auditLogger := initAudit(ctx, cfg, db)
	backups := initBackups(cfg, db, auditLogger)

	// Live admin feed: domain events are forwarded from the bus to the hub.
	wsHub := ws.NewHub()
	feed := ws.NewHandler(wsHub, cfg.Security.CORSOrigins, func(r *http.Request) string {
		if claims := auth.GetClaims(r.Context()); claims != nil {
			return claims.Username
		}
		return ""
	})

	router := api.NewRouter(api.RouterDeps{
		Config:      cfg,
		Booth:       boothService,
		Auth:        authService,
		Enforcer:    enforcer,
		DB:          db,
		Objects:     objects,
		Feed:        feed,
		FeedClients: wsHub,
		Audit:       auditLogger,
		Backups:     backups,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if store, ok := revoked.(*auth.BadgerRevocationStore); ok {
		tree.AddDataService(auth.NewGCService(store, revocationGCTick))
		logging.Info().Msg("Revocation store GC added to supervisor tree")
	}

	if backups != nil {
		tree.AddDataService(backups)
	}

	if auditLogger != nil {
		tree.AddDataService(auditLogger)
		tree.AddMessagingService(audit.NewRecorder(bus, auditLogger))
		logging.Info().Int("retention_days", cfg.Audit.RetentionDays).Msg("Audit logger and recorder added to supervisor tree")
	}

	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(events.NewForwarder(bus, wsHub))
	logging.Info().Msg("WebSocket hub and event forwarder added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, httpDrainTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // best-effort report
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// initAuth builds the JWT manager, the revocation store and the auth
// service, then bootstraps the first admin account.
func initAuth(ctx context.Context, cfg *config.Config, db *database.DB) (*auth.Service, auth.RevocationStore) {
	security := cfg.Security
	if security.AuthMode == "none" {
		logging.Warn().Msg("Authentication disabled (AUTH_MODE=none); admin routes are open")
		if security.JWTSecret == "" {
			security.JWTSecret = uuid.NewString() + uuid.NewString()
		}
	}
	jwtManager, err := auth.NewJWTManager(&security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	revoked, err := auth.NewRevocationStore(cfg.Security.RevocationStore, cfg.Security.RevocationStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open revocation store")
	}

	service := auth.NewService(db, jwtManager, revoked)
	if err := service.Bootstrap(ctx, cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}
	return service, revoked
}

// initAudit prepares the audit trail in the booth database. Returns nil
// when auditing is disabled.
func initAudit(ctx context.Context, cfg *config.Config, db *database.DB) *audit.Logger {
	if !cfg.Audit.Enabled {
		logging.Info().Msg("Audit trail disabled (AUDIT_ENABLED=false)")
		return nil
	}
	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create audit table")
	}
	return audit.NewLogger(store, cfg.Audit)
}

// initBackups creates the backup manager, or returns nil when backups are
// disabled. Media is archived only for the local storage backend.
// Scheduled backups are recorded in the audit trail as system actions.
func initBackups(cfg *config.Config, db *database.DB, auditLogger *audit.Logger) *backup.Manager {
	if !cfg.Backup.Enabled {
		logging.Info().Msg("Backups disabled (BACKUP_ENABLED=false)")
		return nil
	}
	mediaDir := ""
	if cfg.Storage.Backend == "local" {
		mediaDir = cfg.Storage.LocalDir
	}
	manager, err := backup.NewManager(cfg.Backup, db, mediaDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backups")
	}
	manager.SetOnBackupComplete(func(b *backup.Backup) {
		if b.Trigger != backup.TriggerScheduled {
			return
		}
		auditLogger.Log(&audit.Event{
			Type:        audit.EventBackupCreated,
			Outcome:     audit.OutcomeSuccess,
			Actor:       audit.Actor{Type: audit.ActorSystem},
			Target:      &audit.Target{ID: b.ID, Type: "backup"},
			Description: "Scheduled backup created",
		})
	})
	logging.Info().
		Str("dir", cfg.Backup.Dir).
		Dur("interval", cfg.Backup.Interval).
		Bool("media", mediaDir != "").
		Msg("Backups enabled")
	return manager
}
