// Command seed-db creates the schema and loads demo data: a test customer
// with an access token, a small product catalog, and a few coupons.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepharm/api-server/internal/handler"
	"github.com/carepharm/api-server/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		token       string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&token, "access-token", "", "access token to seed (or PHARM_SEED_TOKEN env)")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for token hashing (or PHARM_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if token == "" {
		token = os.Getenv("PHARM_SEED_TOKEN")
	}
	if token == "" {
		slog.Error("access token is required: set --access-token or PHARM_SEED_TOKEN")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("PHARM_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, token, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, token, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCustomer(ctx, pool, token, pepper); err != nil {
		return errors.Wrap(err, "seed customer")
	}
	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedCustomer(ctx context.Context, pool *pgxpool.Pool, token, pepper string) error {
	const customerID = "demo-customer"

	slog.Info("seeding demo customer", slog.String("id", customerID))

	_, err := pool.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		customerID, "Demo Customer", "demo@example.com", "9999999999")
	if err != nil {
		return errors.Wrap(err, "upsert customer")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO access_tokens (key_hash, customer_id, label)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO NOTHING`,
		handler.HashToken([]byte(pepper), token), customerID, "Seeded test token")
	if err != nil {
		return errors.Wrap(err, "upsert access token")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id, name, category, image string
		price                     string
	}{
		{"prod-paracetamol", "Paracetamol 500mg", "cat-otc", "paracetamol.png", "45.00"},
		{"prod-vitamin-c", "Vitamin C 1000mg", "cat-supplements", "vitamin-c.png", "320.00"},
		{"prod-bp-monitor", "Blood Pressure Monitor", "cat-devices", "bp-monitor.png", "1850.00"},
		{"prod-thermometer", "Digital Thermometer", "cat-devices", "thermometer.png", "299.00"},
		{"prod-cough-syrup", "Cough Syrup 100ml", "cat-otc", "cough-syrup.png", "125.00"},
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, category_id, price, image)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, category_id = EXCLUDED.category_id,
				price = EXCLUDED.price, image = EXCLUDED.image`,
			p.id, p.name, p.category, p.price, p.image)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	nextYear := time.Now().AddDate(1, 0, 0)

	coupons := []struct {
		code, kind, amount, percentage, description string
		expires                                     *time.Time
	}{
		{"SAVE10", "percentage", "0", "10", "10% off your order", &nextYear},
		{"FLAT150", "flat", "150", "0", "Flat 150 off", &nextYear},
		{"DEVICES20", "percentage", "0", "20", "20% off health devices", &nextYear},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, discount_type, discount_amount, discount_percentage, description, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				discount_type = EXCLUDED.discount_type,
				discount_amount = EXCLUDED.discount_amount,
				discount_percentage = EXCLUDED.discount_percentage,
				description = EXCLUDED.description,
				expires_at = EXCLUDED.expires_at`,
			c.code, c.kind, c.amount, c.percentage, c.description, c.expires)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
	}

	// DEVICES20 applies only to the devices category.
	_, err := pool.Exec(ctx, `
		INSERT INTO coupon_scopes (coupon_id, item_type, item_id)
		SELECT id, 'Category', 'cat-devices' FROM coupons c WHERE c.code = 'DEVICES20'
		AND NOT EXISTS (
			SELECT 1 FROM coupon_scopes s WHERE s.coupon_id = c.id AND s.item_id = 'cat-devices'
		)`)
	if err != nil {
		return errors.Wrap(err, "scope DEVICES20")
	}
	return nil
}
