package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/gotmt"
	"github.com/ZaguanLabs/gotmt/cache"
	"github.com/ZaguanLabs/gotmt/config"
	"github.com/ZaguanLabs/gotmt/events"
	"github.com/ZaguanLabs/gotmt/provider"
	"github.com/ZaguanLabs/gotmt/store"
)

// app holds the wired components of one process.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	store   store.Backend
	cache   gotmt.TranslationCache
	fanout  *gotmt.Orchestrator
	service *gotmt.Service
	events  gotmt.EventReader

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.store, err = store.Open(ctx, cfg.DatabaseURL, store.Options{
		Retry:     gotmt.DefaultRetryConfig(),
		Logger:    logger,
		SlowQuery: cfg.SlowQueryThreshold,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { a.store.Close() })

	var rdb *redis.Client
	if cfg.CacheBackend == config.BackendRedis || cfg.EventsBackend == config.BackendRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		a.closers = append(a.closers, func() { rdb.Close() })
	}

	if err := a.setupCache(ctx, rdb); err != nil {
		return nil, err
	}

	notifier, err := a.setupEvents(rdb)
	if err != nil {
		return nil, err
	}

	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	adapter := gotmt.NewAdapter(p,
		gotmt.WithSourceLang(cfg.SourceLang),
		gotmt.WithTimeout(cfg.ProviderTimeout),
		gotmt.WithAdapterLogger(logger),
	)
	a.fanout, err = gotmt.NewOrchestrator(adapter,
		gotmt.WithCache(a.cache),
		gotmt.WithParallelism(cfg.FanoutParallelism),
		gotmt.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.closers = append(a.closers, a.fanout.Close)

	propagator := gotmt.NewPropagator(a.store, a.fanout,
		gotmt.WithWorkers(cfg.PropagationWorkers),
		gotmt.WithPropagatorLogger(logger),
	)
	a.service = gotmt.NewService(a.store, a.fanout,
		gotmt.WithNotifier(notifier),
		gotmt.WithPropagator(propagator),
		gotmt.WithServiceLogger(logger),
	)

	return a, nil
}

func (a *app) setupCache(ctx context.Context, rdb *redis.Client) error {
	if a.cfg.CacheBackend != config.BackendRedis {
		a.cache = cache.NewInMemoryCache(a.cfg.CacheTTL)
		return nil
	}

	rc := cache.NewRedisCacheFromClient(rdb, a.cfg.CacheTTL, "")
	if err := rc.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to redis cache: %w", err)
	}
	a.cache = rc
	return nil
}

func (a *app) setupEvents(rdb *redis.Client) (gotmt.Notifier, error) {
	var notifier gotmt.Notifier
	if a.cfg.EventsBackend == config.BackendRedis {
		rl := events.NewRedisLog(rdb, events.RedisLogConfig{
			Stream:   a.cfg.EventsStream,
			Capacity: a.cfg.EventsCapacity,
			Logger:   a.logger,
		})
		a.events, notifier = rl, rl
	} else {
		log := events.NewLog(a.cfg.EventsCapacity)
		a.events, notifier = log, log
	}

	if a.cfg.NATSURL == "" {
		return notifier, nil
	}

	mirror, err := events.NewNATSMirror(a.cfg.NATSURL, a.cfg.NATSSubject)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, mirror.Close)
	return events.Tee{notifier, mirror}, nil
}

func newProvider(cfg config.Config) (gotmt.Provider, error) {
	var p gotmt.Provider
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		p = provider.NewHuggingFaceProvider(provider.HuggingFaceConfig{
			APIKey:  cfg.HuggingFaceAPIKey,
			Model:   cfg.HFModel,
			BaseURL: cfg.HFAPIURL,
		})
	case config.ProviderOpenAI:
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	case config.ProviderMock:
		p = provider.NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.ProviderRateLimit > 0 {
		p = gotmt.NewRateLimitedProvider(p, gotmt.RateLimitConfig{RequestsPerMinute: cfg.ProviderRateLimit})
	}
	return p, nil
}

// loadSnapshot warms an in-memory cache from CACHE_SNAPSHOT. A missing file
// is not an error.
func (a *app) loadSnapshot(ctx context.Context) {
	if a.cfg.CacheSnapshot == "" {
		return
	}
	if _, ok := a.cache.(cache.ExportableCache); !ok {
		return
	}

	res, err := cache.NewImporter(a.cache).ImportFromFile(a.cfg.CacheSnapshot)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return
	case err != nil:
		a.logger.WarnContext(ctx, "cache snapshot not loaded", slog.String("path", a.cfg.CacheSnapshot), slog.Any("error", err))
	default:
		a.logger.InfoContext(ctx, "cache snapshot loaded",
			slog.String("path", a.cfg.CacheSnapshot),
			slog.Int("imported", res.Imported),
			slog.Int("failed", res.Failed),
		)
	}
}

// saveSnapshot writes the in-memory cache to CACHE_SNAPSHOT.
func (a *app) saveSnapshot(ctx context.Context) {
	if a.cfg.CacheSnapshot == "" {
		return
	}
	ec, ok := a.cache.(cache.ExportableCache)
	if !ok {
		return
	}

	err := cache.NewExporter(ec).ExportToFile(a.cfg.CacheSnapshot, map[string]string{"version": gotmt.Version})
	if err != nil {
		a.logger.WarnContext(ctx, "cache snapshot not saved", slog.String("path", a.cfg.CacheSnapshot), slog.Any("error", err))
		return
	}
	a.logger.InfoContext(ctx, "cache snapshot saved", slog.String("path", a.cfg.CacheSnapshot))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
