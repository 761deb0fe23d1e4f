package extension

import (
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/licensing/store"
	mongostore "github.com/xraph/licensing/store/mongo"
	pgstore "github.com/xraph/licensing/store/postgres"
	sqlitestore "github.com/xraph/licensing/store/sqlite"
)

// resolveGroveDB looks up the grove.DB registered in the container, by name
// when one is configured.
func resolveGroveDB(c vessel.Vessel, name string) (*grove.DB, error) {
	if name == "" {
		db, err := vessel.Inject[*grove.DB](c)
		if err != nil {
			return nil, fmt.Errorf("licensing: resolve default grove database: %w", err)
		}
		return db, nil
	}
	db, err := vessel.InjectNamed[*grove.DB](c, name)
	if err != nil {
		return nil, fmt.Errorf("licensing: resolve grove database %q: %w", name, err)
	}
	return db, nil
}

// storeForGrove builds the store backend matching the grove driver.
func storeForGrove(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return pgstore.New(db), nil
	case "sqlite":
		return sqlitestore.New(db), nil
	case "mongo":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("licensing: unsupported grove driver %q", name)
	}
}
