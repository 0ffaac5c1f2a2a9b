// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/snapbooth/internal/audit"
	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/authz"
	"github.com/tomtom215/snapbooth/internal/backup"
	"github.com/tomtom215/snapbooth/internal/booth"
	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/middleware"
	"github.com/tomtom215/snapbooth/internal/storage"
)

// RouterDeps are the collaborators the HTTP surface is built from. Feed
// and FeedClients may be nil, which disables the live feed route. A nil
// Audit disables the audit trail and a nil Backups the backup routes.
type RouterDeps struct {
	Config      *config.Config
	Booth       *booth.Service
	Auth        *auth.Service
	Enforcer    *authz.Enforcer
	DB          Pinger
	Objects     ObjectReader
	Feed        http.Handler
	FeedClients ClientCounter
	Audit       *audit.Logger
	Backups     *backup.Manager
}

// Router owns the handler set and the middleware built from configuration.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
	feed          http.Handler
	serveFiles    bool
}

// NewRouter creates a Router.
func NewRouter(deps RouterDeps) *Router {
	cfg := deps.Config
	return &Router{
		handler: &Handler{
			booth:        deps.Booth,
			auth:         deps.Auth,
			db:           deps.DB,
			objects:      deps.Objects,
			feed:         deps.FeedClients,
			audit:        deps.Audit,
			backups:      deps.Backups,
			authLog:      logging.NewAuthLogger(),
			cookieSecure: cfg.Security.CookieSecure,
			startTime:    time.Now(),
		},
		chiMiddleware: NewChiMiddleware(&cfg.Security),
		authn:         auth.NewMiddleware(deps.Auth, cfg.Security.AuthMode, denyRequest),
		authz:         authz.NewMiddleware(deps.Enforcer, denyRequest),
		feed:          deps.Feed,
		serveFiles:    deps.Objects != nil,
	}
}

// Handler builds the chi route tree.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware
	require := router.authz.Require

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS()) // must be global to answer OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	if router.serveFiles {
		r.With(mw.RateLimit()).Get(storage.FilesPath+"*", h.ServeFile)
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Customer-facing booth flow. No account is needed.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Use(middleware.Compression)

			r.With(mw.RateLimitCustom(RateLimitClaim)).Post("/sessions/verify", h.VerifyCode)
			r.With(mw.RateLimitCustom(RateLimitClaim)).Post("/sessions/start", h.StartSession)
			r.Get("/sessions/{id}/timer", h.SessionTimer)
			r.Get("/sessions/{id}/photos", h.ListPhotos)
			r.Post("/sessions/{id}/photos", h.UploadPhoto)
			r.Get("/photos/{id}", h.GetPhoto)
			r.Post("/screenshots", h.SaveScreenshot)
			r.With(mw.RateLimitCustom(RateLimitRender)).Post("/composites", h.CreateComposite)
			r.With(mw.RateLimitCustom(RateLimitRender)).Post("/emails", h.SendEmail)
			r.Get("/frames", h.ListFrames)
			r.Get("/frames/{id}", h.GetFrame)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.With(mw.RateLimitCustom(RateLimitLogin)).Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(router.authn.Authenticate)
				r.Post("/logout", h.Logout)
				r.Get("/me", h.Me)
				r.With(require(authz.ResourceUsers, authz.ActionWrite)).Post("/register", h.Register)
			})
		})

		// Staff routes.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Use(router.authn.Authenticate)

			if router.feed != nil {
				r.With(require(authz.ResourceFeed, authz.ActionRead)).Get("/ws", router.feed.ServeHTTP)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Compression)

				r.With(require(authz.ResourceCodes, authz.ActionWrite)).Post("/codes", h.GenerateCode)
				r.With(require(authz.ResourcePhotos, authz.ActionDelete)).Delete("/sessions/{id}/photos", h.DeleteSessionPhotos)
				r.With(require(authz.ResourcePhotos, authz.ActionDelete)).Delete("/photos/{id}", h.DeletePhoto)

				r.Route("/admin", func(r chi.Router) {
					r.With(require(authz.ResourceSessions, authz.ActionRead)).Get("/sessions", h.ListSessions)
					r.With(require(authz.ResourceSessions, authz.ActionWrite)).Post("/sessions", h.CreateSession)
					r.With(require(authz.ResourceSessions, authz.ActionRead)).Get("/sessions/{id}", h.GetSession)
					r.With(require(authz.ResourceEarnings, authz.ActionRead)).Get("/earnings", h.Earnings)
					r.With(require(authz.ResourceAudit, authz.ActionRead)).Get("/audit", h.ListAudit)
					r.With(require(authz.ResourceAudit, authz.ActionRead)).Get("/audit/export", h.ExportAudit)
					r.With(require(authz.ResourceBackups, authz.ActionRead)).Get("/backups", h.ListBackups)
					r.With(require(authz.ResourceBackups, authz.ActionWrite)).Post("/backups", h.CreateBackup)
					r.With(require(authz.ResourceBackups, authz.ActionRead)).Get("/backups/{id}", h.GetBackup)
					r.With(require(authz.ResourceBackups, authz.ActionRead)).Get("/backups/{id}/download", h.DownloadBackup)
					r.With(require(authz.ResourceBackups, authz.ActionWrite)).Post("/backups/{id}/verify", h.VerifyBackup)
					r.With(require(authz.ResourceBackups, authz.ActionDelete)).Delete("/backups/{id}", h.DeleteBackup)

					r.With(require(authz.ResourceFrames, authz.ActionWrite)).Post("/frames", h.UploadFrame)
					r.With(require(authz.ResourceFrames, authz.ActionWrite)).Put("/frames/{id}", h.ReplaceFrame)
					r.With(require(authz.ResourceFrames, authz.ActionDelete)).Delete("/frames/{id}", h.DeleteFrame)
				})
			})
		})
	})

	return r
}
