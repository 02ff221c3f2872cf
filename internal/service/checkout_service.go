package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"checkout-core/internal/idempotency"
	"checkout-core/internal/model"
	"checkout-core/internal/repository"
	"checkout-core/internal/telemetry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutState is a step of a single checkout run.
type checkoutState string

const (
	stateValidating     checkoutState = "validating"
	stateReservingStock checkoutState = "reserving_stock"
	stateCommitting     checkoutState = "committing"
	stateSucceeded      checkoutState = "succeeded"
	stateRolledBack     checkoutState = "rolled_back"
	stateRejected       checkoutState = "rejected"
)

const (
	defaultCheckoutTimeout = 30 * time.Second
	compensationTimeout    = 10 * time.Second
	compensationAttempts   = 3
)

// CheckoutDeps are the collaborators of the checkout orchestrator.
type CheckoutDeps struct {
	Carts       CartService
	CartStore   repository.CartRepository
	Orders      repository.OrderRepository
	Stock       repository.StockLedger
	Users       repository.UserDirectory
	Addresses   repository.AddressBook
	Outbox      repository.OutboxRepository
	Idempotency idempotency.Store
	Metrics     *telemetry.Metrics
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	CheckoutDeps
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewCheckoutService creates the checkout orchestrator. timeout bounds a run once
// stock reservation has started; the caller's cancellation no longer applies then.
func NewCheckoutService(deps CheckoutDeps, timeout time.Duration, logger zerolog.Logger) CheckoutService {
	if timeout <= 0 {
		timeout = defaultCheckoutTimeout
	}
	if deps.Idempotency == nil {
		deps.Idempotency = idempotency.NopStore{}
	}
	return &checkoutService{
		CheckoutDeps: deps,
		timeout:      timeout,
		logger:       logger.With().Str("service", "checkout").Logger(),
		now:          time.Now,
	}
}

// reservation is a stock decrement made during a run.
type reservation struct {
	productID string
	quantity  int
}

// checkoutRun carries the state of one checkout attempt.
type checkoutRun struct {
	id       uuid.UUID
	actor    model.Actor
	req      *model.CheckoutRequest
	key      string
	state    checkoutState
	cart     *model.Cart
	address  *model.Address
	reserved []reservation
	pending  *model.Order // set once COMMIT has been sent
	logger   zerolog.Logger
}

func (r *checkoutRun) enter(state checkoutState) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(state)).Msg("checkout state change")
	r.state = state
}

// Checkout converts the actor's cart into an order. Either an order exists and
// stock is decremented for every line, or nothing observable changed.
func (s *checkoutService) Checkout(ctx context.Context, actor model.Actor, req *model.CheckoutRequest) (*model.Order, error) {
	const op = "checkout"

	if req == nil {
		return nil, model.ValidationError(op, "request body is required")
	}

	start := time.Now()
	run := &checkoutRun{
		id:    uuid.New(),
		actor: actor,
		req:   req,
		state: stateValidating,
	}
	run.logger = s.logger.With().
		Str("checkout_id", run.id.String()).
		Str("user_id", actor.UserID).
		Str("cart_id", req.CartID.String()).
		Logger()

	if req.IdempotencyKey != "" {
		run.key = idempotency.UserKey(actor.UserID, req.IdempotencyKey)
		claim, err := s.Idempotency.Claim(ctx, run.key)
		if err != nil {
			run.logger.Error().Err(err).Msg("failed to claim idempotency key")
			return nil, model.InternalError(op, err)
		}
		if !claim.Acquired {
			return s.replay(ctx, run, claim)
		}
	}

	order, err := s.run(ctx, run)

	s.Metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	s.Metrics.CheckoutsTotal.WithLabelValues(string(run.state), string(model.KindOf(err))).Inc()

	if run.key != "" {
		s.settleKey(ctx, run, order, err)
	}
	if err != nil {
		return nil, asDomain(op, err)
	}

	s.Metrics.CheckoutOrderValue.Observe(order.TotalPrice.InexactFloat64())
	run.logger.Info().
		Str("order_id", order.ID.String()).
		Str("total", order.TotalPrice.StringFixed(2)).
		Int("items", len(order.Items)).
		Dur("duration", time.Since(start)).
		Msg("checkout succeeded")
	return order, nil
}

func (s *checkoutService) run(ctx context.Context, run *checkoutRun) (*model.Order, error) {
	if err := s.validate(ctx, run); err != nil {
		run.enter(stateRejected)
		run.logger.Warn().Str("reason", model.CodeOf(err)).Err(err).Msg("checkout rejected")
		return nil, err
	}

	// Past validation the run finishes on its own deadline, so a client
	// disconnect cannot strand decremented stock.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	run.enter(stateReservingStock)
	if err := s.reserve(runCtx, run); err != nil {
		s.rollBack(ctx, run, err)
		return nil, err
	}

	run.enter(stateCommitting)
	order, err := s.commit(runCtx, run)
	if err != nil && run.pending != nil {
		// A failed COMMIT may still have been applied by the server. Stock is
		// restored only once the order is known to be absent.
		found, known := s.lookupPending(ctx, run, err)
		if !known {
			return nil, err
		}
		if found != nil {
			order, err = found, nil
		}
	}
	if err != nil {
		s.rollBack(ctx, run, err)
		return nil, err
	}

	run.enter(stateSucceeded)
	return order, nil
}

// validate checks the request, reprices the cart and resolves the address.
func (s *checkoutService) validate(ctx context.Context, run *checkoutRun) error {
	req := run.req

	if (req.AddressID == nil) == (req.Address == nil) {
		return model.ErrInvalidAddress.WithOp("checkout.validate")
	}
	if req.Address != nil {
		if err := validateStruct("checkout.validate", req.Address); err != nil {
			return err
		}
	}

	cart, err := s.Carts.Reprice(ctx, run.actor.UserID)
	if err != nil {
		return err
	}
	if cart.ID != req.CartID {
		return model.ErrCartNotFound.WithOp("checkout.validate")
	}
	if len(cart.Items) == 0 {
		return model.ErrEmptyCart.WithOp("checkout.validate")
	}
	run.cart = cart

	if req.AddressID != nil {
		addr, err := s.Addresses.ResolveAddress(ctx, *req.AddressID, run.actor.UserID)
		if err != nil {
			return err
		}
		if addr == nil {
			return model.ErrAddressNotFound.WithOp("checkout.validate")
		}
		run.address = addr
	} else {
		run.address = req.Address
	}
	return nil
}

// reserve decrements stock for every product in the cart, in product id order.
func (s *checkoutService) reserve(ctx context.Context, run *checkoutRun) error {
	for _, r := range aggregateLines(run.cart.Items) {
		if err := s.Stock.Decrement(ctx, r.productID, r.quantity); err != nil {
			run.logger.Warn().
				Str("product_id", r.productID).
				Int("quantity", r.quantity).
				Str("reason", model.CodeOf(err)).
				Msg("stock reservation failed")
			return err
		}
		run.reserved = append(run.reserved, r)
	}
	return nil
}

// aggregateLines sums quantities per product. Lines of one product that differ
// only by attributes draw from the same stock.
func aggregateLines(items []model.CartItem) []reservation {
	byProduct := make(map[string]int, len(items))
	for _, it := range items {
		byProduct[it.ProductID] += it.Quantity
	}

	out := make([]reservation, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, reservation{productID: id, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}

// commit writes the order, history link, cart removal and outbox event in one transaction.
func (s *checkoutService) commit(ctx context.Context, run *checkoutRun) (*model.Order, error) {
	cart := run.cart
	now := s.now().UTC()

	order := &model.Order{
		ID:         uuid.New(),
		UserID:     run.actor.UserID,
		Subtotal:   cart.Subtotal,
		Discount:   cart.Discount,
		TotalPrice: cart.TotalPrice,
		CouponCode: cart.CouponApplied,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if run.req.AddressID != nil {
		order.AddressID = run.req.AddressID
	} else {
		order.Address = run.address
	}

	order.Items = make([]model.OrderItem, len(cart.Items))
	for i, it := range cart.Items {
		order.Items[i] = model.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Attributes: it.Attributes,
		}
	}

	tx, err := s.Orders.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx, run.logger)

	if err := s.Orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.Orders.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return nil, err
	}
	if err := s.Users.AppendOrder(ctx, tx, order.UserID, order.ID); err != nil {
		return nil, err
	}
	if err := s.Users.UnlinkCart(ctx, tx, order.UserID); err != nil {
		return nil, err
	}
	if err := s.CartStore.Delete(ctx, tx, cart.ID, cart.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, model.ErrCartChanged.WithOp("checkout.commit")
		}
		return nil, err
	}

	event, err := newOrderEvent(model.EventOrderCreated, order)
	if err != nil {
		return nil, err
	}
	if err := s.Outbox.Enqueue(ctx, tx, event); err != nil {
		return nil, err
	}

	run.pending = order
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// lookupPending checks whether the order of a failed COMMIT was persisted.
// known is false when storage could not answer; the reservations are then
// left in place for reconciliation.
func (s *checkoutService) lookupPending(ctx context.Context, run *checkoutRun, commitErr error) (found *model.Order, known bool) {
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	orderID := run.pending.ID
	found, err := s.Orders.GetByID(lookupCtx, orderID)
	if err != nil {
		run.logger.Error().
			Err(err).
			AnErr("commit_error", commitErr).
			Str("order_id", orderID.String()).
			Int("reserved_lines", len(run.reserved)).
			Msg("order outcome unknown after failed commit, reserved stock kept")
		return nil, false
	}
	if found != nil {
		run.logger.Warn().
			AnErr("commit_error", commitErr).
			Str("order_id", orderID.String()).
			Msg("order persisted despite commit error")
	}
	return found, true
}

// rollBack restores every reservation of the run. It runs on its own deadline
// regardless of the caller's context.
func (s *checkoutService) rollBack(ctx context.Context, run *checkoutRun, cause error) {
	failedIn := run.state
	run.enter(stateRolledBack)

	if len(run.reserved) == 0 {
		run.logger.Info().Str("failed_in", string(failedIn)).Str("reason", model.CodeOf(cause)).Msg("checkout rolled back")
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(run.reserved) - 1; i >= 0; i-- {
		r := run.reserved[i]
		err := s.restore(cleanupCtx, r)
		s.Metrics.StockCompensations.WithLabelValues(telemetry.Outcome(err)).Inc()
		if err != nil {
			run.logger.Error().
				Err(err).
				Str("product_id", r.productID).
				Int("quantity", r.quantity).
				Msg("failed to restore reserved stock")
		}
	}

	run.logger.Info().
		Str("failed_in", string(failedIn)).
		Str("reason", model.CodeOf(cause)).
		Int("restored_lines", len(run.reserved)).
		Msg("checkout rolled back")
}

func (s *checkoutService) restore(ctx context.Context, r reservation) error {
	var err error
	for attempt := 1; attempt <= compensationAttempts; attempt++ {
		if err = s.Stock.Increment(ctx, r.productID, r.quantity); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}

// replay answers a repeated idempotency key.
func (s *checkoutService) replay(ctx context.Context, run *checkoutRun, claim idempotency.Claim) (*model.Order, error) {
	if claim.InFlight() {
		run.logger.Warn().Msg("checkout with this idempotency key already in progress")
		return nil, model.ErrCheckoutInFlight.WithOp("checkout")
	}

	order, err := s.Orders.GetByID(ctx, claim.OrderID)
	if err != nil {
		return nil, model.InternalError("checkout", err)
	}
	if order == nil || !canSee(run.actor, order) {
		return nil, model.ErrOrderNotFound.WithOp("checkout")
	}

	run.logger.Info().Str("order_id", order.ID.String()).Msg("checkout replayed from idempotency key")
	return order, nil
}

// settleKey records the run's outcome against its idempotency key.
func (s *checkoutService) settleKey(ctx context.Context, run *checkoutRun, order *model.Order, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var err error
	if runErr != nil {
		err = s.Idempotency.Release(ctx, run.key)
	} else {
		err = s.Idempotency.Complete(ctx, run.key, order.ID)
	}
	if err != nil {
		run.logger.Error().Err(err).Msg("failed to settle idempotency key")
	}
}
