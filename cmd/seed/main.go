package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Fixed IDs so repeated runs are idempotent and the IDs can be pasted into
// curl examples.
var (
	customerID = uuid.MustParse("8a1f7c6e-3b52-4d2a-9f0e-5c1d2b3a4e01")
	shirtID    = uuid.MustParse("2c9d4e1a-7f3b-4a6c-8e5d-1b2a3c4d5e01")
	mugID      = uuid.MustParse("2c9d4e1a-7f3b-4a6c-8e5d-1b2a3c4d5e02")
)

type variantSeed struct {
	id        uuid.UUID
	productID uuid.UUID
	sku       string
	price     float64
	salePrice *float64
	quantity  int
}

func main() {
	pincodes := flag.Bool("pincodes", true, "write the sample serviceable pincode file")
	flag.Parse()

	if err := run(*pincodes); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(writePincodes bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "storefront-seed")
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if !cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	sale := 399.0
	variants := []variantSeed{
		{id: uuid.MustParse("5e6f7a8b-9c0d-4e1f-a2b3-c4d5e6f70001"), productID: shirtID, sku: "LINEN-S", price: 499, quantity: 25},
		{id: uuid.MustParse("5e6f7a8b-9c0d-4e1f-a2b3-c4d5e6f70002"), productID: shirtID, sku: "LINEN-M", price: 499, salePrice: &sale, quantity: 10},
		{id: uuid.MustParse("5e6f7a8b-9c0d-4e1f-a2b3-c4d5e6f70003"), productID: shirtID, sku: "LINEN-L", price: 499, quantity: 2},
		{id: uuid.MustParse("5e6f7a8b-9c0d-4e1f-a2b3-c4d5e6f70004"), productID: mugID, sku: "MUG-STD", price: 249, quantity: 100},
	}

	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO customers (id, first_name, last_name, email, phone) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		customerID, "Asha", "Rao", "asha.rao@example.com", "+919800000001",
	)
	batch.Queue(`INSERT INTO products (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, shirtID, "Linen Shirt")
	batch.Queue(`INSERT INTO products (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, mugID, "Stoneware Mug")
	for _, v := range variants {
		batch.Queue(
			`INSERT INTO variants (id, product_id, sku, price, sale_price, quantity) VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
			v.id, v.productID, v.sku, v.price, v.salePrice, v.quantity,
		)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}

	logger.Info().
		Str("customer_id", customerID.String()).
		Str("product_id", shirtID.String()).
		Int("variants", len(variants)).
		Msg("catalogue seeded")

	if !writePincodes {
		return nil
	}

	path := cfg.Serviceability.FilePath
	codes := []string{"560001", "560034", "110001", "400001", "600028", "700091"}
	if err := writePincodeFile(path, codes); err != nil {
		return err
	}

	logger.Info().Str("path", path).Int("pincodes", len(codes)).Msg("pincode file written")

	return nil
}

func writePincodeFile(path string, codes []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	for _, code := range codes {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", code); err != nil {
			return fmt.Errorf("failed to write pincode: %w", err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	return nil
}
