// Command seed-db loads the product catalog and bootstrap users into
// PostgreSQL. It is idempotent: rerunning updates catalog rows in place and
// leaves existing users untouched.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		customerKey  string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "API key for the seeded admin (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "API key for the seeded customer (or STORE_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if customerKey == "" {
		customerKey = os.Getenv("STORE_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" || customerKey == "" {
		slog.Error("both --admin-key and --customer-key are required")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, customerKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, customerKey, pepper string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedUser(ctx, pool, "Store Admin", "admin@storefront.local", "admin", adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	if err := seedUser(ctx, pool, "Demo Customer", "customer@storefront.local", "customer", customerKey, pepper); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, description, price, category, image, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	category = EXCLUDED.category,
	image = EXCLUDED.image,
	stock = EXCLUDED.stock
`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		_, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Category, p.Image, p.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}

const (
	insertUserSQL = `
INSERT INTO users (id, name, email, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role
RETURNING id
`
	upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, user_id, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (key_hash) DO UPDATE SET user_id = EXCLUDED.user_id, active = TRUE
`
)

func seedUser(ctx context.Context, pool *pgxpool.Pool, name, email, role, apiKey, pepper string) error {
	var userID string
	err := pool.QueryRow(ctx, insertUserSQL, uuid.New().String(), name, email, role).Scan(&userID)
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	// Store only the HMAC of the key, matching what authentication computes.
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL, uuid.New().String(), hash, userID); err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("seeded user", slog.String("email", email), slog.String("role", role))
	return nil
}
