package order

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/db", migrateURL("postgres://u:p@localhost:5432/db"))
	require.Equal(t, "pgx5://localhost/db?sslmode=disable", migrateURL("postgresql://localhost/db?sslmode=disable"))
	require.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "0001_create_orders.up.sql")
	require.Contains(t, names, "0001_create_orders.down.sql")
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, Migrate(url))
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := PostgresStore{Pool: pool}
	customer := "pg-" + NewID()
	o := Order{
		ID:          NewID(),
		CustomerID:  customer,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		Status:      StatusPending,
		Total:       decimal.RequireFromString("1235.00"),
		TotalVolume: 10.75,
		IsWholesale: true,
		Address:     "12 Marine Drive",
		PinCode:     "360001",
		Items: []Item{
			{ID: "16-5 Litre", ProductID: "16", Name: "American Dry Fruit", Size: "5 Litre", Quantity: 2, Price: decimal.NewFromInt(550)},
			{ID: "16-750 ML", ProductID: "16", Name: "American Dry Fruit", Size: "750 ML", Quantity: 1, Price: decimal.NewFromInt(135)},
		},
	}
	require.NoError(t, store.Create(ctx, o))
	require.ErrorIs(t, store.Create(ctx, o), ErrDuplicateID)

	got, err := store.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	require.True(t, got.Total.Equal(o.Total))
	require.Len(t, got.Items, 2)
	require.Equal(t, "750 ML", got.Items[1].Size)

	list, err := store.ListByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = store.Get(ctx, "someone-else", o.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}
