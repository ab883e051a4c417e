// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/cache"
	"github.com/solewatch/solewatch/internal/clock/system"
	"github.com/solewatch/solewatch/internal/config"
	"github.com/solewatch/solewatch/internal/crawl"
	"github.com/solewatch/solewatch/internal/dates"
	"github.com/solewatch/solewatch/internal/fetch"
	"github.com/solewatch/solewatch/internal/logging"
	"github.com/solewatch/solewatch/internal/metrics"
	memorypub "github.com/solewatch/solewatch/internal/publisher/memory"
	gcppub "github.com/solewatch/solewatch/internal/publisher/pubsub"
	"github.com/solewatch/solewatch/internal/query"
	"github.com/solewatch/solewatch/internal/release"
	"github.com/solewatch/solewatch/internal/store"
)

// App holds the shared, long-lived services: logger, snapshot store,
// publisher, fetch adapter, crawler and the cache coordinator. It is built
// once at startup and fails fast if any critical service cannot initialize.
type App struct {
	Config config.Config
	Logger *zap.Logger
	Cache  *cache.Coordinator

	closers []func() error
}

// New builds the service graph from configuration.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	metrics.Init()

	a := &App{Config: cfg, Logger: logger}

	snapStore, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	normalizer, err := dates.New(cfg.Cache.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("build date normalizer: %w", err)
	}

	var renderer fetch.Renderer
	detector := fetch.NewDetector(cfg.Detector.MinHTMLBytes, cfg.Detector.Keywords)
	if cfg.Headless.Enabled {
		r, err := fetch.NewChromedpRenderer(fetch.RendererConfig{
			MaxParallel: cfg.Headless.MaxParallel,
			Timeout:     cfg.FetchTimeout(),
			HostQPS:     cfg.Headless.HostQPS,
			UserAgent:   cfg.Fetch.UserAgent,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("build headless renderer: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		renderer = r
	}

	fetcher := fetch.New(fetch.Config{
		BaseURL:   cfg.Fetch.BaseURL,
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, detector, renderer, logger)

	crawler := crawl.New(fetcher, crawl.Config{
		MaxPages:    cfg.Crawler.MaxPages,
		Concurrency: cfg.Crawler.Concurrency,
	}, logger)

	a.Cache = cache.New(
		crawler,
		snapStore,
		publisher,
		system.New(),
		query.New(normalizer),
		cache.Config{Staleness: cfg.Staleness()},
		logger,
	)

	logger.Info("application services initialized",
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("pubsub_provider", cfg.PubSub.Provider),
	)
	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg config.Config) (release.SnapshotStore, error) {
	switch cfg.Storage.Provider {
	case "file":
		s, err := store.NewFileStore(store.FileConfig{Path: cfg.Storage.Path}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("build file store: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("build postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error {
			s.Close()
			return nil
		})
		return s, nil
	case "gcs":
		s, err := store.NewGCSStore(ctx, store.GCSConfig{
			Bucket: cfg.Storage.GCSBucket,
			Object: cfg.Storage.GCSObject,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("build gcs store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.Config) (release.Publisher, error) {
	switch cfg.PubSub.Provider {
	case "pubsub":
		p, err := gcppub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			return nil, fmt.Errorf("build pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	case "memory":
		return memorypub.New(), nil
	case "none":
		// The coordinator tolerates a nil publisher and skips events.
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pubsub provider %q", cfg.PubSub.Provider)
	}
}

// Close shuts down all services in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("error closing service", zap.Error(err))
		}
	}
	// Best effort; stdout sync errors on shutdown are not actionable.
	_ = a.Logger.Sync()
}
