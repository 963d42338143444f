// Command catalog-ingest bulk-loads a supplier catalog feed into the
// products table. Feeds are gzip-compressed NDJSON files, one product per
// line; multiple files are decoded concurrently and upserts are batched so
// large catalogs load in minutes rather than hours.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/storage/postgres"
)

const (
	batchSize     = 500
	progressEvery = 10_000
)

// feedProduct is one decoded line of a supplier feed.
type feedProduct struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       string
	Stock       int
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.json.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.json.gz feed files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := make(chan feedProduct, batchSize)

	g, ctx := errgroup.WithContext(ctx)

	// Decoders: one goroutine per feed file.
	decoders, decodeCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		decoders.Go(decodeFeedFile(decodeCtx, f, products))
	}
	g.Go(func() error {
		defer close(products)
		return decoders.Wait()
	})

	// Single writer keeps upserts ordered and batched.
	g.Go(func() error {
		return writeProducts(ctx, pool, products)
	})

	return g.Wait()
}

// decodeFeedFile streams one gzip NDJSON feed, sending decoded products
// downstream.
func decodeFeedFile(ctx context.Context, path string, out chan<- feedProduct) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			p, err := decodeProduct(line)
			if err != nil {
				return errors.Wrapf(err, "decode line %d of %s", count+1, path)
			}

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("decode progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("products", count),
				)
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("decode complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("products", count),
		)
		return nil
	}
}

// decodeProduct parses one NDJSON line. Unknown keys are skipped so feeds
// may carry supplier-specific fields.
func decodeProduct(line []byte) (feedProduct, error) {
	var p feedProduct
	d := jx.DecodeBytes(line)

	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "description":
			v, err := d.Str()
			p.Description = v
			return err
		case "price":
			raw, err := d.Num()
			if err != nil {
				return err
			}
			p.Price, err = decimal.NewFromString(raw.String())
			return err
		case "category":
			v, err := d.Str()
			p.Category = v
			return err
		case "image":
			v, err := d.Str()
			p.Image = v
			return err
		case "stock":
			v, err := d.Int()
			p.Stock = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return feedProduct{}, err
	}

	if p.ID == "" {
		return feedProduct{}, errors.New("product id is required")
	}
	if p.Name == "" {
		return feedProduct{}, errors.Errorf("product %s has no name", p.ID)
	}
	return p, nil
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

// writeProducts drains the channel, flushing one pgx batch per batchSize
// products.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, products <-chan feedProduct) error {
	batch := &pgx.Batch{}
	var total int

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		total += batch.Len()
		slog.Info("write progress", slog.Int("written", total))
		batch = &pgx.Batch{}
		return nil
	}

	for p := range products {
		batch.Queue(upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Category, p.Image, p.Stock)
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("catalog written", slog.Int("products", total))
	return nil
}
