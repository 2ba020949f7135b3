package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/catalog/sqlcatalog"
	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/watch"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the catalog database with a YAML fixture",
		Long: `Import loads the --fixture file into the configured catalog database,
replacing rooms, equipment, features and reservations, then publishes a
catalog.changed event so running servers rebuild their vocabulary.

With --watch the fixture is re-imported every time it changes, until
interrupted.`,
		Example: `  equipfind import --fixture building.yaml --driver sqlite3 --dsn file:equipfind.db
  equipfind import --fixture building.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fixture, _ := cmd.Flags().GetString("fixture")
			if fixture == "" {
				return fmt.Errorf("--fixture is required")
			}
			ensure, _ := cmd.Flags().GetBool("ensure-schema")
			watchFixture, _ := cmd.Flags().GetBool("watch")

			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := sqlcatalog.Open(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if ensure || cfg.Catalog.EnsureSchema {
				if err := sqlcatalog.EnsureSchema(ctx, db); err != nil {
					return err
				}
			}

			eventBus, err := bus.NewBus(cfg.Bus, log)
			if err != nil {
				return fmt.Errorf("creating event bus: %w", err)
			}
			defer eventBus.Close()

			imp := &importer{db: db, cfg: cfg, bus: eventBus, log: log, fixture: fixture, out: newPrinter(cmd)}
			if !watchFixture {
				return imp.run(ctx)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			w, err := watch.NewWatcher(watch.WatcherConfig{Path: fixture, Sync: imp.run, Logger: log})
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Bool("ensure-schema", true, "create the catalog tables when missing")
	cmd.Flags().Bool("watch", false, "re-import whenever the fixture changes")
	return cmd
}

type importer struct {
	db      *sql.DB
	cfg     *config.Config
	bus     bus.Bus
	log     *logger.Logger
	fixture string
	out     *printer
}

// run imports the fixture and announces the change.
func (i *importer) run(ctx context.Context) error {
	m, err := catalog.LoadFixture(i.fixture)
	if err != nil {
		return err
	}

	equipment, rooms, stats := m.Snapshot()
	res, err := sqlcatalog.Import(ctx, i.db, i.cfg.Catalog.Driver, equipment, rooms, stats)
	if err != nil {
		return err
	}

	ids := make([]int64, len(equipment))
	for n, e := range equipment {
		ids[n] = e.ID
	}
	event := bus.NewEvent(bus.TopicCatalogChanged, "equipfind-cli", catalog.Changed{Reason: "catalog.imported", IDs: ids})
	if err := i.bus.Publish(ctx, bus.TopicCatalogChanged, event); err != nil {
		i.log.WithError(err).Warn("Catalog imported but change notification failed")
	}

	return i.out.imported(res)
}
