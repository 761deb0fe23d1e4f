package postgres_test

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/postgres"
	"github.com/xraph/licensing/store/storetest"
)

// TestStore runs the conformance suite against the database named by
// LICENSING_POSTGRES_DSN (a postgres:// URL). Each subtest gets its own
// schema.
func TestStore(t *testing.T) {
	dsn := os.Getenv("LICENSING_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LICENSING_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		schema := strings.ReplaceAll("licensing_test_"+id.NewLedgerID().String(), "-", "_")

		admin := pgdriver.New()
		require.NoError(t, admin.Open(ctx, dsn))
		_, err := admin.Exec(ctx, "CREATE SCHEMA "+schema)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
			_ = admin.Close()
		})

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()

		pdb := pgdriver.New()
		require.NoError(t, pdb.Open(ctx, u.String()))
		db, err := grove.Open(pdb)
		require.NoError(t, err)

		s := postgres.New(db)
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
