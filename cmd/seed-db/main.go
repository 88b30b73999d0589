package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/product"
	"github.com/xenking/pizza-cart/internal/storage/postgres"
)

// catalog is the seed file: the menu, the stores and the standing discounts.
type catalog struct {
	Products  []product.Product
	Locations []location.Location
	Discounts []discount.Rule
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "db/seed/catalog.json", "path to the catalog JSON file")
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

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog", slog.String("path", catalogFile))
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	c, err := parseCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}

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

	return seed(ctx, pool, c)
}

func parseCatalog(data []byte) (*catalog, error) {
	var c catalog
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "products":
			c.Products, err = api.DecodeProducts(d)
		case "locations":
			var nearby []location.Nearby
			nearby, err = api.DecodeNearby(d)
			for _, n := range nearby {
				c.Locations = append(c.Locations, n.Location)
			}
		case "discounts":
			c.Discounts, err = api.DecodeRules(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range c.Products {
		if p.ID == "" || !p.Price.IsPositive() {
			return nil, errors.Errorf("product %q: id and positive price required", p.Name)
		}
	}
	return &c, nil
}

func seed(ctx context.Context, pool *pgxpool.Pool, c *catalog) error {
	products := postgres.NewProductRepository(pool)
	slog.Info("upserting products", slog.Int("count", len(c.Products)))
	for i := range c.Products {
		p := &c.Products[i]
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("variants", len(p.Variants)),
			slog.Int("addons", len(p.Addons)),
		)
	}

	locations := postgres.NewLocationRepository(pool)
	for i := range c.Locations {
		l := &c.Locations[i]
		if err := locations.Upsert(ctx, l); err != nil {
			return errors.Wrapf(err, "upsert location %s", l.ID)
		}
		slog.Info("upserted location", slog.String("id", l.ID), slog.String("name", l.Name))
	}

	discounts := postgres.NewDiscountRepository(pool)
	for i := range c.Discounts {
		r := &c.Discounts[i]
		if err := discounts.Upsert(ctx, r); err != nil {
			return errors.Wrapf(err, "upsert discount %s", r.Code)
		}
		slog.Info("upserted discount", slog.String("code", r.Code), slog.String("description", r.Description))
	}
	return nil
}
