package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/learner-analytics/internal/analytics"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/config"
	"github.com/ignite/learner-analytics/internal/export"
	"github.com/ignite/learner-analytics/internal/facts"
	"github.com/ignite/learner-analytics/internal/identity"
	"github.com/ignite/learner-analytics/internal/pkg/distlock"
	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

// Uploader stores a rendered export and returns its location.
type Uploader interface {
	Upload(ctx context.Context, enterpriseID uuid.UUID, report string, t export.Table) (string, error)
}

// Env is everything a report command runs against.
type Env struct {
	Service  *analytics.Service
	Uploader Uploader
	// Locker serialises uploads; nil uses an in-process locker.
	Locker distlock.Locker

	closers []func() error
}

// Close releases the warehouse and cache connections.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

func (o *RootOptions) env(ctx context.Context) (*Env, error) {
	if o.Env != nil {
		return o.Env, nil
	}
	return setupEnv(ctx, o.ConfigPath)
}

func setupEnv(ctx context.Context, path string) (*Env, error) {
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Configure(cfg.Log.Level, !cfg.Log.DisableRedaction); err != nil {
		return nil, err
	}

	env := &Env{Locker: distlock.NewLocalLocker()}
	reader, err := facts.Open(cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, reader.Close)
	if err := reader.Ping(ctx); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to reach warehouse: %w", err)
	}
	logger.Info("connected to warehouse", "driver", cfg.Warehouse.Driver)

	var c cache.Cache = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		rc, err := cache.DialRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, using in-process cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			env.closers = append(env.closers, rc.Close)
			c = rc
			env.Locker = distlock.NewRedisLocker(rc.Client())
		}
	}

	var groups identity.GroupResolver
	if cfg.EnterpriseAPI.Enabled {
		groups = identity.NewClient(ctx, cfg.EnterpriseAPI)
	}

	opts, err := analytics.OptionsFromConfig(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Service = analytics.NewService(reader, c, catalog.New(cfg.Warehouse.Schema), groups, opts)

	if cfg.Export.S3Bucket != "" {
		up, err := export.NewS3Uploader(ctx, cfg.Export)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Uploader = up
	}
	return env, nil
}
