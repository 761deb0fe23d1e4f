package main

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/memory"
	mongostore "github.com/xraph/licensing/store/mongo"
	pgstore "github.com/xraph/licensing/store/postgres"
	sqlitestore "github.com/xraph/licensing/store/sqlite"
)

// openStore connects the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil

	case "", "sqlite":
		sdb := sqlitedriver.New()
		if err := sdb.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
		}
		db, err := grove.Open(sdb)
		if err != nil {
			return nil, err
		}
		return sqlitestore.New(db), nil

	case "postgres", "pg":
		pdb := pgdriver.New()
		if err := pdb.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db, err := grove.Open(pdb)
		if err != nil {
			return nil, err
		}
		return pgstore.New(db), nil

	case "mongo", "mongodb":
		mdb := mongodriver.New()
		if err := mdb.Open(ctx, cfg.DSN, mongodriver.WithDatabase(cfg.Database)); err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		db, err := grove.Open(mdb)
		if err != nil {
			return nil, err
		}
		return mongostore.New(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
