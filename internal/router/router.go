package router

import (
	"context"
	"net/http"
	"time"

	"checkout-core/internal/handler"
	"checkout-core/internal/middleware"
	"checkout-core/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
	Orders    *handler.OrderHandler
	Coupons   *handler.CouponHandler
	Inventory *handler.InventoryHandler
	Addresses *handler.AddressHandler
}

// Pinger reports whether a backing store is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates the HTTP router. /health and /metrics are served without
// authentication; everything under /api requires the API key and a caller identity.
func New(h Handlers, apiKey string, db Pinger, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// RequestID -> RealIP -> Recovery -> Logging -> CORS
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", health(db, logger))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))
		r.Use(middleware.Identity(logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{itemID}", h.Cart.UpdateItem)
			r.Delete("/items/{itemID}", h.Cart.RemoveItem)
			r.Post("/{cartID}/coupon", h.Cart.ApplyCoupon)
		})

		r.Post("/checkout", h.Checkout.Checkout)
		r.Post("/addresses", h.Addresses.Create)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.List)
			r.Get("/{orderID}", h.Orders.GetByID)
			r.Post("/{orderID}/cancel", h.Orders.Cancel)
			r.With(middleware.RequireRole(model.RoleAdmin)).Patch("/{orderID}/status", h.Orders.UpdateStatus)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.With(middleware.RequireRole(model.RoleAdmin)).Post("/", h.Coupons.Create)
			r.Get("/{code}/validate", h.Coupons.Validate)
		})

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Get("/stock", h.Inventory.GetStock)
			r.With(middleware.RequireRole(model.RoleAdmin)).Post("/restock", h.Inventory.Restock)
		})
	})

	return r
}

func health(db Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("health check failed: database unreachable")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status": "unhealthy"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}
}
