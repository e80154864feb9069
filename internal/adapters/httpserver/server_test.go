package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/tiendavirtual/internal/adapters/payments/stripe"
	"github.com/phenrril/tiendavirtual/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendavirtual/internal/adapters/session/memstore"
	"github.com/phenrril/tiendavirtual/internal/domain"
	"github.com/phenrril/tiendavirtual/internal/usecase"
)

type fakeGateway struct{}

func (fakeGateway) Name() string { return "fake" }

func (fakeGateway) StartCheckout(_ context.Context, o *domain.Order) (string, string, error) {
	return "https://pay.test/" + o.ID.String(), "cs_" + o.TrackingToken[:6], nil
}

type fakeStripe struct{ evt *stripe.PaymentEvent }

func (f *fakeStripe) ParseWebhook(_ []byte, sig string) (*stripe.PaymentEvent, error) {
	if sig != "ok" {
		return nil, errors.New("firma inválida")
	}
	return f.evt, nil
}

type fakeMP struct {
	status string
	seen   []string
}

func (f *fakeMP) PaymentInfo(_ context.Context, id string) (string, string, error) {
	f.seen = append(f.seen, id)
	return f.status, "ref-" + id, nil
}

func (f *fakeMP) VerifyExternalRef(string) (uuid.UUID, bool) { return uuid.Nil, false }

type countingNotifier struct{ calls int }

func (n *countingNotifier) OrderPlaced(context.Context, *domain.Order) error {
	n.calls++
	return nil
}

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	products *postgres.ProductRepo
	orders   *postgres.OrderRepo
	shipping *postgres.ShippingMethodRepo
	stripe   *fakeStripe
	mp       *fakeMP
	notifier *countingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: postgres.NewZeroLogger(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))

	env := &testEnv{
		products: postgres.NewProductRepo(db),
		orders:   postgres.NewOrderRepo(db),
		shipping: postgres.NewShippingMethodRepo(db),
		stripe:   &fakeStripe{},
		mp:       &fakeMP{status: "pending"},
		notifier: &countingNotifier{},
	}
	sessions := memstore.New(0)
	pricing := usecase.NewPricingCalculator()
	cart := &usecase.CartUC{Products: env.products, Pricing: pricing, Sessions: sessions}
	checkout := &usecase.CheckoutUC{Cart: cart, Shipping: env.shipping, Sessions: sessions, FreeShippingFrom: decimal.RequireFromString("50"), Currency: "EUR"}
	h := New(Deps{
		Products:  &usecase.ProductUC{Tx: postgres.NewTxManager(db), Products: env.products, Taxonomy: postgres.NewTaxonomyRepo(db)},
		Cart:      cart,
		Checkout:  checkout,
		Orders:    &usecase.OrderUC{Tx: postgres.NewTxManager(db), Orders: env.orders, Cart: cart, Checkout: checkout, Pricing: pricing, Notifiers: []domain.OrderNotifier{env.notifier}},
		Payments:  &usecase.PaymentUC{Orders: env.orders, Gateway: fakeGateway{}},
		Shipping:  &usecase.ShippingUC{Methods: env.shipping},
		Dashboard: &usecase.DashboardUC{Products: env.products, Orders: env.orders},
		Customers: postgres.NewCustomerRepo(db),
		Sessions:  sessions,
		Stripe:    env.stripe,
		MP:        env.mp,
		Admin:     AdminConfig{User: "admin", Pass: "secreto", Secret: "jwt-test"},
		SiteURL:   "https://tienda.test",
	})
	env.srv = httptest.NewServer(h)
	t.Cleanup(env.srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) product(t *testing.T, name, price string, stock int, active bool) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: uuid.New(), Name: name, Slug: domain.Slugify(name), Family: domain.FamilyStandard, BasePrice: decimal.RequireFromString(price), Stock: stock, Active: active}
	require.NoError(t, e.products.Save(context.Background(), p))
	return p
}

func (e *testEnv) method(t *testing.T, slug, cost string) *domain.ShippingMethod {
	t.Helper()
	m := &domain.ShippingMethod{Name: slug, Slug: slug, Cost: decimal.RequireFromString(cost), Active: true}
	require.NoError(t, e.shipping.Save(context.Background(), m))
	return m
}

var buyerForm = map[string]string{
	"email":       "ana@example.com",
	"name":        "Ana",
	"address":     "Calle 1",
	"city":        "Madrid",
	"postal_code": "28001",
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.product(t, "Camión Rojo", "12.00", 3, true)
	env.product(t, "Oculto", "1.00", 3, false)

	resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[productList](t, resp)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = env.do(t, http.MethodGet, "/api/products/camion-rojo", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/products/oculto", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/products/camion-rojo/price", domain.Personalization{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pr := decode[priceResponse](t, resp)
	assert.True(t, decimal.NewFromInt(12).Equal(pr.UnitPrice))
	assert.Equal(t, 3, pr.Available)
}

func TestCart_AddClampsToStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Gorra", "10.00", 3, true)

	resp := env.do(t, http.MethodPost, "/api/cart/items", cartItemRequest{ProductID: p.ID, Qty: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[cartView](t, resp)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Qty)
	assert.NotEmpty(t, v.Message)
	assert.Equal(t, 3, v.Summary.Count)

	resp = env.do(t, http.MethodPost, "/api/cart/items", cartItemRequest{ProductID: p.ID, Qty: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/cart/items/"+p.ID.String(), cartItemRequest{Qty: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[cartView](t, resp)
	assert.Equal(t, 2, v.Items[0].Qty)
	assert.Empty(t, v.Message)

	resp = env.do(t, http.MethodPut, "/api/cart/items/"+p.ID.String(), cartItemRequest{Qty: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/cart/items/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[cartView](t, resp)
	assert.Empty(t, v.Items)
}

func TestCart_NormalizeAfterStockDrops(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Gorra", "10.00", 3, true)
	env.do(t, http.MethodPost, "/api/cart/items", cartItemRequest{ProductID: p.ID, Qty: 3})

	p.Stock = 1
	require.NoError(t, env.products.Save(ctx, p))

	v := decode[cartView](t, env.do(t, http.MethodGet, "/api/cart", nil))
	require.Len(t, v.StockErrors, 1)
	assert.Equal(t, 1, v.StockErrors[0].Available)

	v = decode[cartView](t, env.do(t, http.MethodPost, "/api/cart/normalize", nil))
	assert.Empty(t, v.StockErrors)
	assert.Equal(t, 1, v.Items[0].Qty)
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Gorra", "10.00", 3, true)
	m := env.method(t, "standard", "4.99")

	resp := env.do(t, http.MethodPost, "/api/checkout/place", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.do(t, http.MethodPost, "/api/cart/items", cartItemRequest{ProductID: p.ID, Qty: 2})
	resp = env.do(t, http.MethodPut, "/api/checkout/shipping", map[string]uuid.UUID{"shipping_method_id": m.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[domain.Totals](t, resp)
	assert.True(t, decimal.RequireFromString("24.99").Equal(totals.Total))

	resp = env.do(t, http.MethodPut, "/api/checkout/data", map[string]string{"email": "mal"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, http.MethodPut, "/api/checkout/data", buyerForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/checkout/place", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[placedOrder](t, resp)
	assert.Equal(t, domain.PaymentPending, placed.Order.PaymentStatus)
	assert.True(t, decimal.RequireFromString("24.99").Equal(placed.Order.Total))
	assert.Equal(t, "https://tienda.test/track/"+placed.Order.TrackingToken, placed.TrackingURL)
	assert.Empty(t, placed.RedirectURL)
	assert.Equal(t, 1, env.notifier.calls)

	got, err := env.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	v := decode[cartView](t, env.do(t, http.MethodGet, "/api/cart", nil))
	assert.Empty(t, v.Items)

	resp = env.do(t, http.MethodGet, "/api/track/"+placed.Order.TrackingToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/track/corto", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckout_CardThenStripeWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Gorra", "30.00", 2, true)

	env.do(t, http.MethodPost, "/api/cart/items", cartItemRequest{ProductID: p.ID, Qty: 2})
	env.do(t, http.MethodPut, "/api/checkout/data", buyerForm)
	resp := env.do(t, http.MethodPut, "/api/checkout/payment", map[string]string{"payment_method": "card"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/checkout/place", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[placedOrder](t, resp)
	assert.Equal(t, domain.PaymentInitiated, placed.Order.PaymentStatus)
	assert.Equal(t, "https://pay.test/"+placed.Order.ID.String(), placed.RedirectURL)
	assert.Equal(t, 0, env.notifier.calls)
	assert.Equal(t, 2, env.stockOf(t, p.ID))

	v := decode[cartView](t, env.do(t, http.MethodGet, "/api/cart", nil))
	assert.Len(t, v.Items, 1)

	resp = env.do(t, http.MethodPost, "/webhooks/stripe", map[string]string{}, "Stripe-Signature", "mala")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.stripe.evt = &stripe.PaymentEvent{OrderID: placed.Order.ID, Ref: "pi_123", Paid: true}
	for i := 0; i < 2; i++ {
		resp = env.do(t, http.MethodPost, "/webhooks/stripe", map[string]string{}, "Stripe-Signature", "ok")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	o, err := env.orders.FindByID(ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "pi_123", o.PaymentRef)
	assert.Equal(t, 0, env.stockOf(t, p.ID))
	assert.Equal(t, 1, env.notifier.calls)

	resp = env.do(t, http.MethodGet, "/checkout/success?order="+placed.Order.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[cartView](t, env.do(t, http.MethodGet, "/api/cart", nil))
	assert.Empty(t, v.Items)
}

func (e *testEnv) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestAdmin_AuthAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.product(t, "Gorra", "10.00", 3, true)

	resp := env.do(t, http.MethodGet, "/admin/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/admin/login", map[string]string{"user": "admin", "pass": "mal"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/admin/login", map[string]string{"user": "admin", "pass": "secreto"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok := decode[map[string]any](t, resp)["token"].(string)

	resp = env.do(t, http.MethodGet, "/admin/api/dashboard", nil, "Authorization", "Bearer "+tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[usecase.DashboardStats](t, resp)
	assert.EqualValues(t, 1, stats.Products)

	resp = env.do(t, http.MethodGet, "/admin/api/dashboard", nil, "Authorization", "Bearer basura")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/admin/api/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/admin/orders/export.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodPost, "/admin/api/shipping-methods", map[string]any{"name": "Express", "cost": "7.50", "active": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[domain.ShippingMethod](t, resp)
	assert.Equal(t, "express", m.Slug)

	resp = env.do(t, http.MethodPost, "/admin/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/admin/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_StockOnlyChangesThroughStockEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Gorra", "10.00", 3, true)

	resp := env.do(t, http.MethodPost, "/admin/login", map[string]string{"user": "admin", "pass": "secreto"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	edit := map[string]any{"name": "Gorra", "base_price": "12.00", "stock": 99, "active": true}
	resp = env.do(t, http.MethodPut, "/admin/api/products/"+p.ID.String(), edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[domain.Product](t, resp)
	assert.True(t, decimal.NewFromInt(12).Equal(saved.BasePrice))
	assert.Equal(t, 3, saved.Stock)
	assert.Equal(t, 3, env.stockOf(t, p.ID))

	resp = env.do(t, http.MethodPut, "/admin/api/products/"+p.ID.String()+"/stock", map[string]int{"stock": 9})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 9, env.stockOf(t, p.ID))

	resp = env.do(t, http.MethodPut, "/admin/api/products/"+p.ID.String()+"/stock", map[string]int{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, http.MethodPut, "/admin/api/products/"+p.ID.String()+"/stock", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, http.MethodPut, "/admin/api/products/"+uuid.NewString()+"/stock", map[string]int{"stock": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 9, env.stockOf(t, p.ID))
}

func TestWebhookMP_PaymentIDSource(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/webhooks/mp?id=pay_1", "no es un objeto")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := map[string]any{"type": "payment", "data": map[string]string{"id": "pay_2"}}
	resp = env.do(t, http.MethodPost, "/webhooks/mp?id=otro", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/webhooks/mp", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{"pay_1", "pay_2"}, env.mp.seen)
}

func TestMyOrders_RequireLogin(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/me/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/auth/google/login", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWriteError_StatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.InvalidInput("x"), http.StatusBadRequest},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrEmptyCart, http.StatusBadRequest},
		{&domain.StockError{Title: "Gorra", Requested: 2, Available: 1}, http.StatusConflict},
		{fmt.Errorf("envuelto: %w", domain.ErrInsufficientStock), http.StatusConflict},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), c.err)
		assert.Equal(t, c.code, rec.Code, c.err.Error())
	}
}
