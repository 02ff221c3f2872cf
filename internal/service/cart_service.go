package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"checkout-core/internal/model"
	"checkout-core/internal/pricing"
	"checkout-core/internal/repository"
	"checkout-core/internal/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// cartMutation edits a loaded cart inside tx and keeps cart.Items in step with its writes.
type cartMutation func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error

// cartService implements CartService.
type cartService struct {
	carts      repository.CartRepository
	products   repository.ProductRepository
	coupons    repository.CouponRepository
	users      repository.UserDirectory
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	maxRetries int
	reads      singleflight.Group
	now        func() time.Time
}

// NewCartService creates a new cart service. maxRetries bounds how often a write
// that lost a version check is retried before the caller gets a conflict.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	coupons repository.CouponRepository,
	users repository.UserDirectory,
	metrics *telemetry.Metrics,
	maxRetries int,
	logger zerolog.Logger,
) CartService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &cartService{
		carts:      carts,
		products:   products,
		coupons:    coupons,
		users:      users,
		metrics:    metrics,
		logger:     logger.With().Str("service", "cart").Logger(),
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// AddItem adds a product line, merging with an existing line for the same product and attributes.
func (s *cartService) AddItem(ctx context.Context, userID string, req *model.AddItemRequest) (*model.Cart, error) {
	const op = "cart.add_item"

	if req == nil {
		return nil, model.ValidationError(op, "request body is required")
	}
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity.WithOp(op)
	}
	if err := req.Attributes.Validate(); err != nil {
		return nil, model.ValidationError(op, err.Error())
	}

	return s.mutate(ctx, "add_item", userID, true, func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
		product, err := s.products.GetByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			s.logger.Warn().Str("user_id", userID).Str("product_id", req.ProductID).Msg("product not found")
			return model.ErrProductNotFound.WithOp(op)
		}

		if line, ok := cart.FindLine(req.ProductID, req.Attributes); ok {
			qty := line.Quantity + req.Quantity
			if qty > product.Stock {
				return stockExceeded(op, product, qty)
			}
			if err := s.carts.UpdateItemQuantity(ctx, tx, line.ID, qty); err != nil {
				return err
			}
			line.Quantity = qty
			line.UnitPrice = product.Price
			return nil
		}

		if req.Quantity > product.Stock {
			return stockExceeded(op, product, req.Quantity)
		}
		item := model.CartItem{
			ID:          uuid.New(),
			CartID:      cart.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			Attributes:  req.Attributes,
			UnitPrice:   product.Price,
		}
		if err := s.carts.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

// RemoveItem deletes one line from the user's cart.
func (s *cartService) RemoveItem(ctx context.Context, userID string, itemID uuid.UUID) (*model.Cart, error) {
	const op = "cart.remove_item"

	return s.mutate(ctx, "remove_item", userID, false, func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
		if _, ok := cart.FindItem(itemID); !ok {
			return model.ErrCartItemNotFound.WithOp(op)
		}
		if err := s.carts.DeleteItem(ctx, tx, itemID); err != nil {
			return err
		}
		cart.Items = slices.DeleteFunc(cart.Items, func(it model.CartItem) bool { return it.ID == itemID })
		return nil
	})
}

// UpdateItem increments or decrements a line's quantity by one. Increments are
// checked against current stock.
func (s *cartService) UpdateItem(ctx context.Context, userID string, itemID uuid.UUID, action model.ItemAction) (*model.Cart, error) {
	const op = "cart.update_item"

	if action != model.ActionIncrement && action != model.ActionDecrement {
		return nil, model.ValidationError(op, "action must be increment or decrement")
	}

	return s.mutate(ctx, "update_item", userID, false, func(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
		line, ok := cart.FindItem(itemID)
		if !ok {
			return model.ErrCartItemNotFound.WithOp(op)
		}

		qty := line.Quantity
		if action == model.ActionDecrement {
			qty--
			if qty < 1 {
				return model.ErrInvalidQuantity.WithOp(op).Withf("Quantity cannot go below 1; remove the item instead")
			}
		} else {
			qty++
			product, err := s.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return model.ErrProductNotFound.WithOp(op)
			}
			if qty > product.Stock {
				return stockExceeded(op, product, qty)
			}
			line.UnitPrice = product.Price
		}

		if err := s.carts.UpdateItemQuantity(ctx, tx, line.ID, qty); err != nil {
			return err
		}
		line.Quantity = qty
		return nil
	})
}

// GetCart returns the user's cart priced at current product prices. Concurrent
// reads for the same user share one storage round trip.
func (s *cartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	// The shared read must not fail for every waiter when the first caller goes away.
	readCtx := context.WithoutCancel(ctx)
	v, err, shared := s.reads.Do(userID, func() (any, error) {
		cart, err := s.carts.GetByUserID(readCtx, nil, userID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return model.EmptyCart(userID), nil
		}
		totals, err := s.price(readCtx, cart)
		if err != nil {
			return nil, err
		}
		cart.Subtotal, cart.Discount, cart.TotalPrice = totals.Subtotal, totals.Discount, totals.Total
		return cart, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get cart")
		return nil, asDomain("cart.get", err)
	}
	if shared {
		s.logger.Debug().Str("user_id", userID).Msg("cart read coalesced")
	}

	// Callers may modify the result; hand each one its own copy.
	cart := *v.(*model.Cart)
	cart.Items = slices.Clone(cart.Items)
	return &cart, nil
}

// ClearCart unlinks and deletes the user's cart.
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.tryClear(ctx, userID)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.CartVersionRetries.WithLabelValues("clear").Inc()
			continue
		}
		s.metrics.CartMutations.WithLabelValues("clear", telemetry.Outcome(err)).Inc()
		if err != nil {
			return asDomain("cart.clear", err)
		}
		return nil
	}
	return model.ErrCartChanged.WithOp("cart.clear")
}

func (s *cartService) tryClear(ctx context.Context, userID string) error {
	tx, err := s.carts.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx, s.logger)

	cart, err := s.carts.GetByUserID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		s.logger.Debug().Str("user_id", userID).Msg("no cart to clear")
		return nil
	}

	if err := s.users.UnlinkCart(ctx, tx, userID); err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, tx, cart.ID, cart.Version); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cart clear: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("cart_id", cart.ID.String()).Msg("cart cleared")
	return nil
}

// Reprice recomputes the cart totals from current prices.
func (s *cartService) Reprice(ctx context.Context, userID string) (*model.Cart, error) {
	return s.mutate(ctx, "reprice", userID, false, nil)
}

// mutate runs fn against the user's cart and commits it with a version-checked
// totals write, retrying when another writer got there first.
func (s *cartService) mutate(ctx context.Context, op, userID string, create bool, fn cartMutation) (*model.Cart, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		cart, err := s.tryMutate(ctx, userID, create, fn)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.CartVersionRetries.WithLabelValues(op).Inc()
			s.logger.Debug().
				Str("user_id", userID).
				Str("operation", op).
				Int("attempt", attempt).
				Msg("cart version conflict, retrying")
			continue
		}

		s.metrics.CartMutations.WithLabelValues(op, telemetry.Outcome(err)).Inc()
		if err != nil {
			if model.KindOf(err) == model.KindInternal {
				s.logger.Error().Err(err).Str("user_id", userID).Str("operation", op).Msg("cart mutation failed")
			}
			return nil, asDomain("cart."+op, err)
		}

		s.logger.Debug().
			Str("user_id", userID).
			Str("operation", op).
			Int64("version", cart.Version).
			Str("total", cart.TotalPrice.String()).
			Msg("cart updated")
		return cart, nil
	}

	s.metrics.CartMutations.WithLabelValues(op, "conflict").Inc()
	s.logger.Warn().Str("user_id", userID).Str("operation", op).Int("attempts", s.maxRetries).Msg("cart write retries exhausted")
	return nil, model.ErrCartChanged.WithOp("cart." + op)
}

func (s *cartService) tryMutate(ctx context.Context, userID string, create bool, fn cartMutation) (*model.Cart, error) {
	tx, err := s.carts.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx, s.logger)

	cart, err := s.carts.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		if !create {
			return nil, model.ErrCartNotFound
		}
		if cart, err = s.createCart(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	if fn != nil {
		if err := fn(ctx, tx, cart); err != nil {
			return nil, err
		}
	}

	totals, err := s.price(ctx, cart)
	if err != nil {
		return nil, err
	}

	version, err := s.carts.SaveTotals(ctx, tx, cart.ID, cart.Version, totals)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cart: %w", err)
	}

	cart.Version = version
	cart.Subtotal = totals.Subtotal
	cart.Discount = totals.Discount
	cart.TotalPrice = totals.Total
	cart.IsActive = len(cart.Items) > 0
	return cart, nil
}

func (s *cartService) createCart(ctx context.Context, tx pgx.Tx, userID string) (*model.Cart, error) {
	now := s.now().UTC()
	cart := model.EmptyCart(userID)
	cart.ID = uuid.New()
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now

	created, err := s.carts.Create(ctx, tx, cart)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent request created the cart first; retry against it.
		return nil, repository.ErrVersionConflict
	}
	if err := s.users.LinkCart(ctx, tx, userID, cart.ID); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("cart_id", cart.ID.String()).Msg("cart created")
	return cart, nil
}

// price computes totals over all items. Item unit prices are the catalog prices
// read with the cart, so the totals follow price changes until checkout.
func (s *cartService) price(ctx context.Context, cart *model.Cart) (model.CartTotals, error) {
	var coupon *model.Coupon
	if cart.CouponApplied != nil {
		c, err := s.coupons.GetByCode(ctx, *cart.CouponApplied)
		if err != nil {
			return model.CartTotals{}, err
		}
		coupon = c
	}

	fillLineTotals(cart)
	return pricing.Compute(pricing.LinesFromItems(cart.Items), coupon), nil
}

func fillLineTotals(cart *model.Cart) {
	for i := range cart.Items {
		it := &cart.Items[i]
		it.LineTotal = pricing.LineTotal(pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
}

func stockExceeded(op string, product *model.Product, qty int) error {
	return model.ErrInvalidQuantity.WithOp(op).
		Withf("Requested quantity %d exceeds available stock %d for product %s", qty, product.Stock, product.ID)
}
