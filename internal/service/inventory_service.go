package service

import (
	"context"

	"checkout-core/internal/model"
	"checkout-core/internal/repository"

	"github.com/rs/zerolog"
)

// inventoryService implements InventoryService.
type inventoryService struct {
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(products repository.ProductRepository, logger zerolog.Logger) InventoryService {
	return &inventoryService{
		products: products,
		logger:   logger.With().Str("service", "inventory").Logger(),
	}
}

// GetStock returns the current stock of a product.
func (s *inventoryService) GetStock(ctx context.Context, productID string) (*model.StockLevel, error) {
	if productID == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound.WithOp("inventory.get_stock")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to get product")
		return nil, model.InternalError("inventory.get_stock", err)
	}
	if product == nil {
		s.logger.Debug().Str("product_id", productID).Msg("product not found")
		return nil, model.ErrProductNotFound.WithOp("inventory.get_stock")
	}

	return &model.StockLevel{ProductID: product.ID, Stock: product.Stock}, nil
}

// Restock adds quantity units to a product and returns the new level.
func (s *inventoryService) Restock(ctx context.Context, productID string, quantity int) (*model.StockLevel, error) {
	const op = "inventory.restock"

	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity.WithOp(op)
	}

	if err := s.products.Increment(ctx, productID, quantity); err != nil {
		if model.KindOf(err) == model.KindInternal {
			s.logger.Error().Err(err).Str("product_id", productID).Int("quantity", quantity).Msg("failed to restock")
		}
		return nil, asDomain(op, err)
	}

	s.logger.Info().Str("product_id", productID).Int("quantity", quantity).Msg("product restocked")
	return s.GetStock(ctx, productID)
}
