// Package backend opens the store.Store selected by configuration
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vonshlovens/flownotes/internal/config"
	"github.com/vonshlovens/flownotes/internal/store"
	"github.com/vonshlovens/flownotes/internal/store/filestore"
	"github.com/vonshlovens/flownotes/internal/store/postgres"
	"github.com/vonshlovens/flownotes/internal/store/remote"
	"github.com/vonshlovens/flownotes/internal/store/sqlite"
)

// Open returns the store for cfg.Store.Driver. Postgres migrations are applied on open.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	slog.Debug("opening store", "driver", cfg.Store.Driver)

	switch cfg.Store.Driver {
	case config.DriverFile, "":
		fs, err := filestore.New(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil

	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.ConnectionString(), cfg.Database.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil

	case config.DriverRemote:
		c := remote.NewClient(cfg.Store.URL)
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach %s: %w", cfg.Store.URL, err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
