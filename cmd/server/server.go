// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/codr1/dashprefs/internal/api"
	"github.com/codr1/dashprefs/internal/api/session"
	settingsapi "github.com/codr1/dashprefs/internal/api/settings"
	themeapi "github.com/codr1/dashprefs/internal/api/theme"
	"github.com/codr1/dashprefs/internal/app"
	"github.com/codr1/dashprefs/internal/config"
	"github.com/codr1/dashprefs/internal/ratelimit"
	"github.com/codr1/dashprefs/internal/settings"
)

func newServer(cfg *config.Config, application *app.App, form *settings.Form, toggle *settings.Toggle, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithMetrics(application.Metrics),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router, cfg, application, form, toggle, limiter)

	return &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.App.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the theme websocket is long-lived. Remote calls
		// are bounded by the profile client timeout instead.
		IdleTimeout: 60 * time.Second,
	}
}

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(&ratelimit.Config{
		SessionMaxRejected: cfg.RateLimit.SessionMaxRejected,
		SessionLockout:     cfg.RateLimit.SessionLockout(),
		WritesPerMinute:    cfg.RateLimit.WritesPerMinute,
		TrustProxy:         cfg.RateLimit.TrustProxy,
	})
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, application *app.App, form *settings.Form, toggle *settings.Toggle, limiter *ratelimit.Limiter) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
	})

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	settingsapi.NewHandler(application.Service, form, toggle).
		WithWriteGuard(limiter.LimitWrites).
		Register(mux)
	themeapi.NewHandler(application.Service, toggle, application.Subject).
		WithWriteGuard(limiter.LimitWrites).
		Register(mux)
	session.NewHandler(application.Auth, form).
		WithTokenGuard(limiter.GuardSession).
		Register(mux)

	if application.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(application.Registry, promhttp.HandlerOpts{}))
	}

	staticDir := cfg.App.StaticDir
	fs := http.FileServer(http.Dir(staticDir))

	// Add logging middleware for static files
	mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
