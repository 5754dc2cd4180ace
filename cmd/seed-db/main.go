package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/product"
	"github.com/xenking/storefront-cart/internal/storage/postgres"
)

type config struct {
	DatabaseURL  string `usage:"PostgreSQL connection URL (or DATABASE_URL env)" flag:"database-url"`
	ProductsFile string `default:"db/seed/products.json" usage:"Path to products JSON file" flag:"products-file"`
}

// productJSON is a catalog entry with a decimal price such as "19.99".
type productJSON struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	StripeProductID string          `json:"stripeProductID"`
	Image           struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"image"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			EnvPrefix: "STOREFRONT",
			SkipFiles: true,
		})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		}
		if cfg.DatabaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}

		if err := run(ctx, lg, cfg); err != nil {
			return errors.Wrap(err, "seed")
		}
		lg.Info("Seed completed successfully")
		return nil
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedProducts(ctx, lg, postgres.NewProductRepository(pool), cfg.ProductsFile)
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, productsFile string) error {
	lg.Info("Reading products file", zap.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	lg.Info("Upserting products", zap.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, product.Product{
			ID:              p.ID,
			Title:           p.Title,
			Slug:            p.Slug,
			Category:        p.Category,
			Price:           p.Price.Shift(2).Round(0).IntPart(),
			Image:           product.Media{URL: p.Image.URL, Alt: p.Image.Alt},
			StripeProductID: p.StripeProductID,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		lg.Info("Upserted product", zap.String("id", p.ID), zap.String("title", p.Title))
	}

	return nil
}
