package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultImportWorkers = 4

// ImportResult summarises an import run.
type ImportResult struct {
	Files      int `json:"files"`
	Read       int `json:"read"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// Importer creates coupons from definition files.
type Importer struct {
	loader  Loader
	creator Creator
	workers int
	logger  zerolog.Logger
}

// NewImporter creates an importer. workers bounds concurrent file loads and coupon writes.
func NewImporter(loader Loader, creator Creator, workers int, logger zerolog.Logger) *Importer {
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	return &Importer{
		loader:  loader,
		creator: creator,
		workers: workers,
		logger:  logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// Import loads every file and creates each coupon through the regular coupon
// rules. Codes already stored or repeated across files count as duplicates;
// definitions the rules reject count as invalid. Any other failure aborts the run.
func (im *Importer) Import(ctx context.Context, paths ...string) (ImportResult, error) {
	result := ImportResult{Files: len(paths)}

	files := make([][]model.CreateCouponRequest, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for i, path := range paths {
		g.Go(func() error {
			reqs, err := im.loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			files[i] = reqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	// First occurrence of a code wins, in file order.
	seen := make(map[string]struct{})
	var pending []model.CreateCouponRequest
	for _, reqs := range files {
		for _, req := range reqs {
			result.Read++
			code := service.NormalizeCode(req.Code)
			if _, dup := seen[code]; dup {
				result.Duplicates++
				continue
			}
			seen[code] = struct{}{}
			pending = append(pending, req)
		}
	}

	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for _, req := range pending {
		g.Go(func() error {
			_, err := im.creator.CreateCoupon(gctx, &req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Created++
			case errors.Is(err, model.ErrCouponExists):
				result.Duplicates++
			case model.KindOf(err) == model.KindValidation:
				result.Invalid++
				im.logger.Warn().Str("coupon", req.Code).Str("reason", model.MessageOf(err)).Msg("coupon definition rejected")
			default:
				return fmt.Errorf("failed to create coupon %s: %w", req.Code, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		im.logger.Error().Err(err).Msg("coupon import aborted")
		return result, err
	}

	im.logger.Info().
		Int("files", result.Files).
		Int("read", result.Read).
		Int("created", result.Created).
		Int("duplicates", result.Duplicates).
		Int("invalid", result.Invalid).
		Msg("coupon import finished")
	return result, nil
}
