package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/cache"
	"github.com/otaviosalomao/FundValidation/internal/collector"
	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/logger"
	"github.com/otaviosalomao/FundValidation/internal/pipeline"
	"github.com/otaviosalomao/FundValidation/internal/reconcile"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
	"github.com/otaviosalomao/FundValidation/internal/store"
)

var configPath = flag.String("config", defaultConfigPath(), "path to the YAML config file")

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// app holds what every command needs: validated config, logger and the
// resources to release on exit.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	closers []func() error
}

// newApp loads the config and checks it with validate, which each command
// narrows to the sections it uses.
func newApp(validate func(*config.Config) error) (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close resource", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) settings() reconcile.Settings {
	return reconcile.NewSettings(decimal.NewFromFloat(a.cfg.Reconcile.Tolerance), a.cfg.PeriodDescriptions())
}

func (a *app) cacheStore() (cache.Store, error) {
	s, err := cache.Open(a.cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rs, ok := s.(*cache.RedisStore); ok {
		a.closers = append(a.closers, rs.Close)
	}
	return s, nil
}

func (a *app) recorder() recorder.Recorder {
	if a.cfg.Recorder.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Recorder.SQLitePath, a.log)
	if err != nil {
		a.log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, sr.Close)
	return sr
}

// newPipeline wires the feed client, quota store, cache and recorder. The
// database is not opened for feed-only use.
func (a *app) newPipeline(ctx context.Context, withBank bool, rec recorder.Recorder) (*pipeline.Pipeline, error) {
	cfg := a.cfg
	descriptions := cfg.PeriodDescriptions()

	var feed collector.FeedFetcher = collector.NewFeedClient(cfg.Feed, cfg.Proxy, descriptions, a.log)
	var cs cache.Store
	if cfg.Cache.Enabled {
		var err error
		if cs, err = a.cacheStore(); err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		feed = &cache.CachedFeed{Inner: feed, Store: cs, TTL: cfg.Cache.FeedTTL, Logger: a.log}
	}
	a.log.Info("data source", zap.String("feed", feed.Name()), zap.Bool("cache", cfg.Cache.Enabled))

	var quotas collector.QuotaSource
	if withBank {
		qs, err := store.Open(ctx, cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, qs.Close)
		quotas = qs
		if cs != nil {
			quotas = &cache.CachedQuotas{Inner: qs, Store: cs, TTL: cfg.Cache.DBTTL, Logger: a.log}
		}
	}

	return &pipeline.Pipeline{
		Collector:   collector.NewCollector(feed, quotas, cfg.Feed.Concurrency, a.log),
		Settings:    a.settings(),
		Output:      cfg.Output,
		Instruments: cfg.Run.Instruments,
		Periods:     cfg.PeriodIDs(),
		Recorder:    rec,
		Logger:      a.log,
	}, nil
}
