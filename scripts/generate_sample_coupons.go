package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"checkout-core/internal/model"

	"github.com/shopspring/decimal"
)

// Writes sample coupon definition files for cmd/coupon-import.
// FIVEOFF appears in both files and is imported once. TOOMUCH is a 110%
// percentage coupon and is rejected. OLDPROMO has already expired.
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	nextYear := time.Now().AddDate(1, 0, 0).UTC().Truncate(24 * time.Hour)

	coupons := map[string][]model.CreateCouponRequest{
		"coupons_batch1.gz": {
			{Code: "FIVEOFF", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), ExpirationDate: nextYear},
			{Code: "TENPCT", DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(10), ExpirationDate: nextYear, MaxUsage: 1000},
			{Code: "BIGSPEND", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(25), ExpirationDate: nextYear, MinPurchaseAmount: decimal.NewFromInt(150)},
			{Code: "TOOMUCH", DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(110), ExpirationDate: nextYear},
		},
		"coupons_batch2.gz": {
			{Code: "FIVEOFF", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), ExpirationDate: nextYear},
			{Code: "LASTONE", DiscountType: model.DiscountPercentage, DiscountValue: decimal.RequireFromString("12.5"), ExpirationDate: nextYear, MaxUsage: 1},
			{Code: "OLDPROMO", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(3), ExpirationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	for filename, defs := range coupons {
		filePath := filepath.Join(dataDir, filename)

		if err := createCouponFile(filePath, defs); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d coupons\n", filePath, len(defs))
	}

	fmt.Println("\nImport with:")
	fmt.Println("  go run ./cmd/coupon-import data/coupons/coupons_batch1.gz data/coupons/coupons_batch2.gz")
	fmt.Println("\nExpected: created=4 duplicates=1 invalid=2")
}

func createCouponFile(filePath string, defs []model.CreateCouponRequest) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for _, def := range defs {
		if err := enc.Encode(def); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", def.Code, err)
		}
	}

	return nil
}
