package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-tierprice/internal/app"
	"github.com/noah-isme/toko-tierprice/internal/auth"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/migrations"
	"github.com/noah-isme/toko-tierprice/internal/obs"
	"github.com/noah-isme/toko-tierprice/internal/settings"
)

func main() {
	var (
		migrate      = flag.Bool("migrate", true, "apply database migrations before seeding")
		namespace    = flag.String("namespace", "CrossVariantPricing.config", "settings namespace")
		groupByPrice = flag.Bool("group-by-price", false, "global groupByPrice setting")
		blacklist    = flag.String("blacklist", "", "global blacklist patterns")
		hashPassword = flag.String("hash-password", "", "print an argon2id hash for ADMIN_USERS and exit")
	)
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(hash)
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if *migrate {
			if err := migrations.Up(dbURL); err != nil {
				logger.Fatal().Err(err).Msg("apply migrations")
			}
		}
		pool, err := app.NewPool(ctx, dbURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		defer pool.Close()

		tx, err := pool.Begin(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("begin transaction")
		}
		if err := seedCatalog(ctx, tx, catalog.DemoRecords(), logger); err != nil {
			_ = tx.Rollback(ctx)
			logger.Fatal().Err(err).Msg("seed catalog")
		}
		if err := tx.Commit(ctx); err != nil {
			logger.Fatal().Err(err).Msg("commit catalog")
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set, skipping catalog")
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		rdb, err := app.NewRedis(ctx, redisURL, false, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() { _ = rdb.Close() }()

		store := settings.NewRedisStore(rdb, 0, settings.Values{})
		global := settings.Values{GroupByPrice: *groupByPrice, Blacklist: *blacklist}.Normalize()
		if err := store.Set(ctx, *namespace, settings.GlobalScope, global); err != nil {
			logger.Fatal().Err(err).Msg("seed settings")
		}
		logger.Info().Str("key", settings.Key(*namespace, settings.GlobalScope)).Msg("global settings written")
	} else {
		logger.Warn().Msg("REDIS_URL not set, skipping settings")
	}

	logger.Info().Msg("seeding completed")
}

func seedCatalog(ctx context.Context, tx pgx.Tx, records []catalog.Record, logger zerolog.Logger) error {
	// parents first so variant foreign keys resolve
	ordered := make([]catalog.Record, 0, len(records))
	for _, rec := range records {
		if rec.ParentID == "" {
			ordered = append(ordered, rec)
		}
	}
	for _, rec := range records {
		if rec.ParentID != "" {
			ordered = append(ordered, rec)
		}
	}

	for _, rec := range ordered {
		var parent any
		if rec.ParentID != "" {
			parent = rec.ParentID
		}
		minPurchase := rec.MinPurchase
		if minPurchase < 1 {
			minPurchase = 1
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO product (id, parent_id, product_number, min_purchase, group_purchase_quantity)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				parent_id = EXCLUDED.parent_id,
				product_number = EXCLUDED.product_number,
				min_purchase = EXCLUDED.min_purchase,
				group_purchase_quantity = EXCLUDED.group_purchase_quantity`,
			rec.ID, parent, rec.ProductNumber, minPurchase, rec.GroupMinimum)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", rec.ProductNumber, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM product_price WHERE product_id = $1`, rec.ID); err != nil {
			return fmt.Errorf("clear prices of %s: %w", rec.ProductNumber, err)
		}
		batch := &pgx.Batch{}
		for _, row := range rec.Prices {
			var rule any
			if row.RuleID != "" {
				rule = row.RuleID
			}
			batch.Queue(`
				INSERT INTO product_price (product_id, rule_id, quantity_end, price, tax_rate)
				VALUES ($1, $2, $3, $4::numeric, $5::numeric)`,
				rec.ID, rule, row.QuantityEnd, row.UnitPrice.String(), row.TaxRate.String())
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert prices of %s: %w", rec.ProductNumber, err)
			}
		}
		logger.Info().Str("product", rec.ProductNumber).Int("tiers", len(rec.Prices)).Msg("seeded product")
	}
	return nil
}
