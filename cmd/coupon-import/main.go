// Command coupon-import creates coupons from gzipped JSON-lines definition files.
//
//	coupon-import [-workers N] coupons_q3.gz coupons_q4.gz
//
// With S3 enabled, each path is first read from S3_BUCKET under S3_PREFIX and
// falls back to the local file system.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"checkout-core/internal/config"
	"checkout-core/internal/coupon"
	"checkout-core/internal/database"
	"checkout-core/internal/repository"
	"checkout-core/internal/service"
	"checkout-core/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	workers := flag.Int("workers", 4, "concurrent file loads and coupon writes")
	flag.Parse()
	if flag.NArg() == 0 {
		return fmt.Errorf("usage: coupon-import [-workers N] FILE...")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	fileLoader := coupon.NewFileLoader(logger)
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		s3Loader, err = coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}
	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	coupons := service.NewCouponService(
		repository.NewCouponRepository(pool, logger),
		repository.NewCartRepository(pool, logger),
		telemetry.NewMetrics(prometheus.NewRegistry()),
		cfg.Checkout.MaxCartRetries,
		logger,
	)

	result, err := coupon.NewImporter(loader, coupons, *workers, logger).Import(ctx, flag.Args()...)
	if err != nil {
		return err
	}

	fmt.Printf("files=%d read=%d created=%d duplicates=%d invalid=%d\n",
		result.Files, result.Read, result.Created, result.Duplicates, result.Invalid)
	return nil
}
