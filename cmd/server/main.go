// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/dashprefs/internal/app"
	"github.com/codr1/dashprefs/internal/config"
	"github.com/codr1/dashprefs/internal/scheduler"
	"github.com/codr1/dashprefs/internal/settings"
)

func configPath() string {
	path := flag.String("config", "", "path to the YAML config file")
	flag.Parse()
	if *path != "" {
		return *path
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return config.DefaultConfigPath
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Features.EnableDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	application, err := app.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	form := settings.NewForm(application.Service)
	toggle := settings.NewToggle(application.Service)
	toggle.Mount(ctx)
	defer toggle.Unmount()

	if !cfg.Remote.Offline() && cfg.Remote.ResyncCron != "" {
		sched, err := scheduler.New(log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize scheduler")
		}
		if err := scheduler.RegisterResyncJob(sched, form, cfg.Remote.ResyncCron); err != nil {
			log.Fatal().Err(err).Msg("Failed to register profile resync job")
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}()
	}

	limiter := newLimiter(cfg)
	defer limiter.Close()

	// Create server instance
	server := newServer(cfg, application, form, toggle, limiter)

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if application.Bridge != nil {
		g.Go(func() error {
			log.Info().Str("redis_addr", cfg.Broadcast.RedisAddr).Msg("Starting theme broadcast bridge")
			application.Bridge.Serve(ctx)
			return nil
		})
	}

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
