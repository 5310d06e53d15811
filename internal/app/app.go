// Package app assembles the settings components from configuration. Both the
// server and the CLI build on it.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/config"
	"github.com/codr1/dashprefs/internal/db"
	"github.com/codr1/dashprefs/internal/metrics"
	"github.com/codr1/dashprefs/internal/profile"
	"github.com/codr1/dashprefs/internal/settings"
	"github.com/codr1/dashprefs/internal/store"
)

type App struct {
	Config   *config.Config
	DB       *db.DB
	Auth     *profile.AuthStore
	Remote   profile.Accessor
	Subject  *broadcast.Subject
	Bridge   *broadcast.RedisBridge
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	Service  *settings.Service

	redis goredis.UniversalClient
}

// New opens the database and builds the service graph. The Redis bridge is
// created but not started; callers that want remote events run Bridge.Serve.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		Config:  cfg,
		DB:      database,
		Auth:    profile.NewAuthStore(),
		Subject: broadcast.NewSubject(),
	}

	if cfg.Remote.AuthToken != "" {
		if err := a.Auth.Save(cfg.Remote.AuthToken); err != nil {
			logger.Warn().Err(err).Msg("Ignoring PROFILE_AUTH_TOKEN")
		}
	}

	if cfg.Remote.Offline() {
		logger.Info().Msg("No profile service configured, running local only")
		a.Remote = profile.Offline{}
	} else {
		client, err := profile.NewClient(profile.ClientConfig{
			BaseURL:         cfg.Remote.BaseURL,
			Collection:      cfg.Remote.Collection,
			Timeout:         cfg.Remote.Timeout(),
			BreakerFailures: uint(cfg.Remote.BreakerFailures),
			BreakerDelay:    cfg.Remote.BreakerDelay(),
			Logger:          logger,
		}, a.Auth)
		if err != nil {
			database.Close()
			return nil, err
		}
		a.Remote = client
	}

	if cfg.Features.EnableMetrics {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewCollector(a.Registry)
	}

	if cfg.Broadcast.RedisAddr != "" {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Broadcast.RedisAddr,
			Password: cfg.Broadcast.RedisPassword,
		})
		a.Bridge = broadcast.NewRedisBridge(a.redis, cfg.Broadcast.Channel, a.Subject, logger)
	}

	a.Service = settings.NewService(settings.Options{
		Local:      store.NewLocal(database.Queries, logger),
		Remote:     a.Remote,
		Broadcast:  a.Subject,
		Collection: cfg.Remote.Collection,
		Metrics:    a.Metrics,
		Logger:     logger,
	})
	return a, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.DB.Close()
}
