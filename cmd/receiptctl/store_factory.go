package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vaultmesh/covenant/pkg/config"
	"github.com/vaultmesh/covenant/pkg/store"
)

// openStore builds the ReceiptStore named by cfg.StoreDriver. "memory" needs
// no DSN; "sqlite" and "postgres" open cfg.StoreDSN through database/sql
// with the driver each store package blank-imports.
func openStore(cfg *config.Config) (store.ReceiptStore, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store.NewSQLiteStore(db)
	case "postgres":
		db, err := sql.Open("postgres", cfg.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store.NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
