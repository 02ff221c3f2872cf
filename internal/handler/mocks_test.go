package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"checkout-core/internal/middleware"
	"checkout-core/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, userID string, req *model.AddItemRequest) (*model.Cart, error) {
	args := m.Called(ctx, userID, req)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID string, itemID uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, userID, itemID)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID string, itemID uuid.UUID, action model.ItemAction) (*model.Cart, error) {
	args := m.Called(ctx, userID, itemID, action)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartService) Reprice(ctx context.Context, userID string) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*model.Coupon)
	return c, args.Error(1)
}

func (m *MockCouponService) GetCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(*model.Coupon)
	return c, args.Error(1)
}

func (m *MockCouponService) Validate(ctx context.Context, code, userID string) (*model.Coupon, error) {
	args := m.Called(ctx, code, userID)
	c, _ := args.Get(0).(*model.Coupon)
	return c, args.Error(1)
}

func (m *MockCouponService) ApplyCoupon(ctx context.Context, userID string, cartID uuid.UUID, code string) (*model.Cart, error) {
	args := m.Called(ctx, userID, cartID, code)
	c, _ := args.Get(0).(*model.Cart)
	return c, args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, actor model.Actor, req *model.CheckoutRequest) (*model.Order, error) {
	args := m.Called(ctx, actor, req)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, actor, orderID)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, actor, limit, offset)
	o, _ := args.Get(0).([]model.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, orderID, status)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, actor, orderID)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) GetStock(ctx context.Context, productID string) (*model.StockLevel, error) {
	args := m.Called(ctx, productID)
	l, _ := args.Get(0).(*model.StockLevel)
	return l, args.Error(1)
}

func (m *MockInventoryService) Restock(ctx context.Context, productID string, quantity int) (*model.StockLevel, error) {
	args := m.Called(ctx, productID, quantity)
	l, _ := args.Get(0).(*model.StockLevel)
	return l, args.Error(1)
}

type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) SaveAddress(ctx context.Context, userID string, addr *model.Address) (*model.SavedAddress, error) {
	args := m.Called(ctx, userID, addr)
	a, _ := args.Get(0).(*model.SavedAddress)
	return a, args.Error(1)
}

var customer = model.Actor{UserID: "user-1"}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target, body string, actor model.Actor, h http.HandlerFunc, headers ...string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	req = req.WithContext(middleware.WithActor(req.Context(), actor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
