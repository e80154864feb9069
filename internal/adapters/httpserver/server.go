package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/tiendavirtual/internal/adapters/payments/stripe"
	"github.com/phenrril/tiendavirtual/internal/domain"
	"github.com/phenrril/tiendavirtual/internal/usecase"
)

type StripeWebhooks interface {
	ParseWebhook(payload []byte, signature string) (*stripe.PaymentEvent, error)
}

type MPWebhooks interface {
	PaymentInfo(ctx context.Context, paymentID string) (status, externalRef string, err error)
	VerifyExternalRef(ext string) (uuid.UUID, bool)
}

type AdminConfig struct {
	User   string
	Pass   string
	Secret string
}

type Deps struct {
	Products  *usecase.ProductUC
	Cart      *usecase.CartUC
	Checkout  *usecase.CheckoutUC
	Orders    *usecase.OrderUC
	Payments  *usecase.PaymentUC
	Shipping  *usecase.ShippingUC
	Dashboard *usecase.DashboardUC
	Customers domain.CustomerRepo
	Sessions  domain.SessionStore

	OAuth  *oauth2.Config
	Stripe StripeWebhooks
	MP     MPWebhooks

	Admin         AdminConfig
	SiteURL       string
	SessionTTL    time.Duration
	SecureCookies bool
}

type Server struct {
	Deps
	mux *http.ServeMux
}

func New(d Deps) http.Handler {
	if d.SessionTTL <= 0 {
		d.SessionTTL = 14 * 24 * time.Hour
	}
	s := &Server{Deps: d, mux: http.NewServeMux()}
	s.routes()
	return Chain(s.mux,
		Sessions(d.SessionTTL, d.SecureCookies),
		SecurityHeaders,
		Logging,
		Recovery,
		RequestID,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("GET /api/products", s.apiProducts)
	s.mux.HandleFunc("GET /api/products/{slug}", s.apiProduct)
	s.mux.HandleFunc("POST /api/products/{slug}/price", s.apiProductPrice)
	s.mux.HandleFunc("GET /api/categories", s.apiCategories)
	s.mux.HandleFunc("GET /api/brands", s.apiBrands)
	s.mux.HandleFunc("GET /api/shipping-methods", s.apiShippingMethods)

	s.mux.HandleFunc("GET /api/cart", s.apiCart)
	s.mux.HandleFunc("POST /api/cart/items", s.apiCartAdd)
	s.mux.HandleFunc("PUT /api/cart/items/{id}", s.apiCartUpdate)
	s.mux.HandleFunc("DELETE /api/cart/items/{id}", s.apiCartRemove)
	s.mux.HandleFunc("DELETE /api/cart", s.apiCartClear)
	s.mux.HandleFunc("POST /api/cart/normalize", s.apiCartNormalize)

	s.mux.HandleFunc("GET /api/checkout", s.apiCheckout)
	s.mux.HandleFunc("PUT /api/checkout/data", s.apiCheckoutData)
	s.mux.HandleFunc("PUT /api/checkout/payment", s.apiCheckoutPayment)
	s.mux.HandleFunc("PUT /api/checkout/shipping", s.apiCheckoutShipping)
	s.mux.HandleFunc("POST /api/checkout/place", s.apiCheckoutPlace)
	s.mux.HandleFunc("GET /checkout/success", s.handleCheckoutSuccess)
	s.mux.HandleFunc("GET /checkout/cancel", s.handleCheckoutCancel)
	s.mux.HandleFunc("GET /api/track/{token}", s.apiTrack)

	s.mux.HandleFunc("POST /webhooks/stripe", s.webhookStripe)
	s.mux.HandleFunc("POST /webhooks/mp", s.webhookMP)

	s.mux.HandleFunc("GET /auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("GET /auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/me", s.apiMe)
	s.mux.HandleFunc("GET /api/me/orders", s.apiMyOrders)
	s.mux.HandleFunc("GET /api/me/orders/{id}", s.apiMyOrder)

	s.mux.HandleFunc("POST /admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("POST /admin/logout", s.handleAdminLogout)
	s.mux.Handle("GET /admin/api/dashboard", s.admin(s.adminDashboard))
	s.mux.Handle("GET /admin/api/orders", s.admin(s.adminOrders))
	s.mux.Handle("GET /admin/api/orders/{id}", s.admin(s.adminOrder))
	s.mux.Handle("POST /admin/api/orders/{id}/mark-paid", s.admin(s.adminMarkPaid))
	s.mux.Handle("GET /admin/orders/export.xlsx", s.admin(s.adminExportOrders))
	s.mux.Handle("GET /admin/api/products", s.admin(s.adminProducts))
	s.mux.Handle("POST /admin/api/products", s.admin(s.adminSaveProduct))
	s.mux.Handle("PUT /admin/api/products/{id}", s.admin(s.adminSaveProduct))
	s.mux.Handle("DELETE /admin/api/products/{id}", s.admin(s.adminDeleteProduct))
	s.mux.Handle("PUT /admin/api/products/{id}/stock", s.admin(s.adminSetStock))
	s.mux.Handle("POST /admin/api/products/fix-slugs", s.admin(s.adminFixSlugs))
	s.mux.Handle("POST /admin/api/products/stock.xlsx", s.admin(s.adminImportStock))
	s.mux.Handle("GET /admin/api/products/{id}/variants", s.admin(s.adminVariants))
	s.mux.Handle("POST /admin/api/products/{id}/variants", s.admin(s.adminSaveVariant))
	s.mux.Handle("DELETE /admin/api/variants/{id}", s.admin(s.adminDeleteVariant))
	s.mux.Handle("PUT /admin/api/variants/{id}/stock", s.admin(s.adminSetVariantStock))
	s.mux.Handle("GET /admin/api/shipping-methods", s.admin(s.adminShippingMethods))
	s.mux.Handle("POST /admin/api/shipping-methods", s.admin(s.adminSaveShippingMethod))
	s.mux.Handle("DELETE /admin/api/shipping-methods/{id}", s.admin(s.adminDeleteShippingMethod))
	s.mux.Handle("POST /admin/api/categories", s.admin(s.adminSaveCategory))
	s.mux.Handle("DELETE /admin/api/categories/{id}", s.admin(s.adminDeleteCategory))
	s.mux.Handle("POST /admin/api/brands", s.admin(s.adminSaveBrand))
	s.mux.Handle("DELETE /admin/api/brands/{id}", s.admin(s.adminDeleteBrand))
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes; anything unknown is logged
// and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stock *domain.StockError
	switch {
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, errorBody{Error: stock.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, errorBody{Error: "sin stock suficiente"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no encontrado"})
	case errors.Is(err, domain.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "el carrito está vacío"})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: "transición de pago inválida"})
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("error en handler")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "error interno"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return domain.InvalidInput("json inválido")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.InvalidInput(name + " inválido")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}
