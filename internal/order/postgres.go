package order

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

// Migrate applies the order schema to the database at databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

// PostgresStore persists orders in Postgres.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// Create implements Store.
func (s PostgresStore) Create(ctx context.Context, o Order) error {
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, status, total, total_volume, is_wholesale, address, pin_code, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`,
			o.ID, o.CustomerID, o.Status, o.Total.String(), o.TotalVolume, o.IsWholesale, o.Address, o.PinCode, o.CreatedAt)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (order_id, position, item_id, product_id, name, category, size, quantity, price, image)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)`,
				o.ID, i, it.ID, it.ProductID, it.Name, it.Category, it.Size, it.Quantity, it.Price.String(), it.Image)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const selectOrder = `
	SELECT id, customer_id, status, total::text, total_volume, is_wholesale, address, pin_code, created_at
	FROM orders`

// ListByCustomer implements Store.
func (s PostgresStore) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, selectOrder+` WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	for i := range orders {
		items, err := s.items(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// Get implements Store.
func (s PostgresStore) Get(ctx context.Context, customerID, orderID string) (Order, error) {
	rows, err := s.Pool.Query(ctx, selectOrder+` WHERE id = $1 AND customer_id = $2`, orderID, customerID)
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	if o.Items, err = s.items(ctx, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s PostgresStore) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT item_id, product_id, name, category, size, quantity, price::text, image
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var (
			it    Item
			price string
		)
		if err := row.Scan(&it.ID, &it.ProductID, &it.Name, &it.Category, &it.Size, &it.Quantity, &price, &it.Image); err != nil {
			return Item{}, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return Item{}, err
		}
		it.Price = p
		return it, nil
	})
}

func scanOrder(row pgx.CollectableRow) (Order, error) {
	var (
		o     Order
		total string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &total, &o.TotalVolume, &o.IsWholesale, &o.Address, &o.PinCode, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return Order{}, err
	}
	o.Total = t
	return o, nil
}
