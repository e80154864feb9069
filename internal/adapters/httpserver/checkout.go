package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type checkoutView struct {
	Data            *domain.CheckoutData    `json:"data"`
	Payment         domain.PaymentMethod    `json:"payment_method"`
	ShippingMethods []domain.ShippingMethod `json:"shipping_methods"`
	Totals          domain.Totals           `json:"totals"`
	StockErrors     int                     `json:"stock_errors"`
}

type placedOrder struct {
	Order       *domain.Order `json:"order"`
	TrackingURL string        `json:"tracking_url"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

func (s *Server) trackingURL(o *domain.Order) string {
	return strings.TrimRight(s.SiteURL, "/") + "/track/" + o.TrackingToken
}

// checkoutData returns the stored form, or an empty one prefilled from the
// logged in customer.
func (s *Server) checkoutData(r *http.Request) (*domain.CheckoutData, error) {
	d, err := s.Checkout.Data(r.Context(), sessionID(r))
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &domain.CheckoutData{}
	}
	cust, err := s.currentCustomer(r)
	if err != nil {
		return nil, err
	}
	cust.Prefill(d)
	return d, nil
}

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)
	d, err := s.checkoutData(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pay, err := s.Checkout.Payment(ctx, sid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	methods, err := s.Checkout.ShippingMethods(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	totals, err := s.Checkout.Totals(ctx, sid, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	issues, err := s.Cart.StockErrors(ctx, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutView{Data: d, Payment: pay, ShippingMethods: methods, Totals: totals, StockErrors: len(issues)})
}

func (s *Server) apiCheckoutData(w http.ResponseWriter, r *http.Request) {
	var d domain.CheckoutData
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	d.CustomerID = nil
	cust, err := s.currentCustomer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cust.Prefill(&d)
	saved, err := s.Checkout.SaveData(r.Context(), sessionID(r), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) apiCheckoutPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod domain.PaymentMethod `json:"payment_method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PaymentMethod == domain.PaymentCard && s.Payments == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "pago con tarjeta no disponible"})
		return
	}
	if err := s.Checkout.SavePayment(r.Context(), sessionID(r), req.PaymentMethod); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.PaymentMethod{"payment_method": req.PaymentMethod})
}

func (s *Server) apiCheckoutShipping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingMethodID uuid.UUID `json:"shipping_method_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	sid := sessionID(r)
	if _, err := s.Checkout.SelectShipping(ctx, sid, req.ShippingMethodID); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	totals, err := s.Checkout.Totals(ctx, sid, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// apiCheckoutPlace turns the session cart into an order. Cash orders are
// final right away; card orders stay initiated until the provider confirms
// and the cart is kept in case the customer comes back.
func (s *Server) apiCheckoutPlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)
	d, err := s.Checkout.Data(ctx, sid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "faltan los datos de envío"})
		return
	}
	if d.PaymentMethod, err = s.Checkout.Payment(ctx, sid); err != nil {
		writeError(w, r, err)
		return
	}

	if d.PaymentMethod == domain.PaymentCard {
		if s.Payments == nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "pago con tarjeta no disponible"})
			return
		}
		o, err := s.Orders.CreatePendingCardOrder(ctx, sid, *d)
		if err != nil {
			writeError(w, r, err)
			return
		}
		url, err := s.Payments.StartCardCheckout(ctx, o)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "no se pudo iniciar el pago"})
			return
		}
		writeJSON(w, http.StatusCreated, placedOrder{Order: o, TrackingURL: s.trackingURL(o), RedirectURL: url})
		return
	}

	o, err := s.Orders.CreateFromCart(ctx, sid, *d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Orders.NotifyPlaced(ctx, o)
	writeJSON(w, http.StatusCreated, placedOrder{Order: o, TrackingURL: s.trackingURL(o)})
}

// handleCheckoutSuccess is the provider's return URL. The webhook marks the
// order paid; here the session is cleaned up so the cart does not linger.
func (s *Server) handleCheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)
	id, err := uuid.Parse(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, domain.InvalidInput("pedido inválido"))
		return
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Cart.Discard(ctx, sid); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Checkout.Reset(ctx, sid); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":       o.ID,
		"payment_status": o.PaymentStatus,
		"tracking_url":   s.trackingURL(o),
	})
}

func (s *Server) handleCheckoutCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": r.URL.Query().Get("order"),
		"message":  "el pago fue cancelado, tu carrito sigue disponible",
	})
}

func (s *Server) apiTrack(w http.ResponseWriter, r *http.Request) {
	o, err := s.Orders.Track(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
