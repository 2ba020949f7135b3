package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/catalog/redisstats"
	"github.com/equipfind/equipfind/internal/catalog/sqlcatalog"
	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/search"
)

// Backends are the collaborators the engine runs against.
type Backends struct {
	Catalog catalog.Catalog
	Stats   catalog.StatsProvider
	Bus     bus.Bus
	// Checks are reported by /readyz.
	Checks []search.Check

	closers []func() error
}

// OpenBackends connects the catalog database, the stats source and the
// event bus described by cfg. On error everything opened so far is closed.
func OpenBackends(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *Backends, err error) {
	b := &Backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	db, err := sqlcatalog.Open(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, db.Close)

	if cfg.Catalog.EnsureSchema {
		if err := sqlcatalog.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensuring catalog schema: %w", err)
		}
		log.Info("Catalog schema ensured", "driver", cfg.Catalog.Driver)
	}

	b.Catalog = sqlcatalog.New(db, cfg.Catalog.Driver, log)
	b.Checks = append(b.Checks,
		search.Check{Name: "database", Critical: true, Probe: db.PingContext},
		search.CatalogCheck(b.Catalog),
	)
	log.Info("Connected to catalog", "driver", cfg.Catalog.Driver)

	switch cfg.Stats.Backend {
	case "redis":
		store, err := redisstats.New(cfg.Stats.RedisURL, cfg.Stats.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis stats: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.Stats = store
		b.Checks = append(b.Checks, search.PingCheck("stats", store, true))
		log.Info("Reservation stats from redis", "prefix", cfg.Stats.KeyPrefix)
	default:
		b.Stats = sqlcatalog.NewStatsStore(db, cfg.Catalog.Driver)
		log.Info("Reservation stats from catalog database")
	}

	eventBus, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}
	b.closers = append(b.closers, eventBus.Close)
	b.Bus = eventBus

	return b, nil
}

// Close releases the backends in reverse opening order.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
