package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/analyzer"
	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/catalog/redisstats"
	"github.com/equipfind/equipfind/internal/catalog/sqlcatalog"
	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/grpcclient"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/search"
)

// locator is what the search commands run against: an in-process engine or
// a remote server.
type locator interface {
	Search(ctx context.Context, req search.Request) (*search.SearchResponse, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	Filters(ctx context.Context) (*search.FilterOptions, error)
	Close() error
}

type localLocator struct {
	engine *search.Engine
	close  func() error
}

func (l *localLocator) Search(ctx context.Context, req search.Request) (*search.SearchResponse, error) {
	results, err := l.engine.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &search.SearchResponse{Query: req.Query, Count: len(results), Results: results}, nil
}

func (l *localLocator) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = l.engine.SuggestLimit()
	}
	return l.engine.Suggest(ctx, query, limit)
}

func (l *localLocator) Filters(ctx context.Context) (*search.FilterOptions, error) {
	return l.engine.Filters(ctx)
}

func (l *localLocator) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// loadConfig loads the config file named by --config and applies the
// catalog flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("driver") {
		cfg.Catalog.Driver, _ = cmd.Flags().GetString("driver")
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Catalog.DSN, _ = cmd.Flags().GetString("dsn")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format), nil
}

// openLocator picks the backend from the global flags: --server, then
// --fixture, then the configured catalog database.
func openLocator(cmd *cobra.Command) (locator, error) {
	ctx := cmd.Context()
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if addr, _ := cmd.Flags().GetString("server"); addr != "" {
		return grpcclient.New(grpcclient.Config{ServerAddress: addr})
	}

	a, err := analyzer.New(cfg.Search.Analyzer, cfg.Search.Language)
	if err != nil {
		return nil, err
	}
	engineCfg := search.Config{
		CandidateLimit: cfg.Search.CandidateLimit,
		FallbackLimit:  cfg.Search.FallbackLimit,
		VocabularyTTL:  cfg.Search.VocabularyTTL,
		SuggestLimit:   cfg.Search.SuggestLimit,
	}

	if fixture, _ := cmd.Flags().GetString("fixture"); fixture != "" {
		m, err := catalog.LoadFixture(fixture)
		if err != nil {
			return nil, err
		}
		return &localLocator{engine: search.NewEngine(m, m, log, engineCfg, search.WithAnalyzer(a))}, nil
	}

	db, err := sqlcatalog.Open(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN)
	if err != nil {
		return nil, err
	}
	closers := []func() error{db.Close}
	var stats catalog.StatsProvider = sqlcatalog.NewStatsStore(db, cfg.Catalog.Driver)
	if cfg.Stats.Backend == "redis" {
		store, err := redisstats.New(cfg.Stats.RedisURL, cfg.Stats.KeyPrefix)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		stats = store
		closers = append(closers, store.Close)
	}

	engine := search.NewEngine(sqlcatalog.New(db, cfg.Catalog.Driver, log), stats, log, engineCfg, search.WithAnalyzer(a))
	return &localLocator{engine: engine, close: func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}}, nil
}
