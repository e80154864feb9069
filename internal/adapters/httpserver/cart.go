package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
	"github.com/phenrril/tiendavirtual/internal/usecase"
)

type cartLineView struct {
	ProductID uuid.UUID               `json:"product_id"`
	Name      string                  `json:"name"`
	Slug      string                  `json:"slug"`
	ImageURL  string                  `json:"image_url,omitempty"`
	Qty       int                     `json:"qty"`
	UnitPrice decimal.Decimal         `json:"unit_price"`
	Subtotal  decimal.Decimal         `json:"subtotal"`
	Meta      *domain.Personalization `json:"meta,omitempty"`
}

type stockIssueView struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Variant   string    `json:"variant,omitempty"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

type cartView struct {
	Items       []cartLineView      `json:"items"`
	StockErrors []stockIssueView    `json:"stock_errors"`
	Totals      domain.Totals       `json:"totals"`
	Summary     usecase.CartSummary `json:"summary"`
	Message     string              `json:"message,omitempty"`
}

type cartItemRequest struct {
	ProductID uuid.UUID               `json:"product_id"`
	Qty       int                     `json:"qty"`
	Meta      *domain.Personalization `json:"meta"`
}

func (s *Server) renderCart(w http.ResponseWriter, r *http.Request, c *domain.Cart, code int, msg string) {
	ctx := r.Context()
	sid := sessionID(r)
	items, err := s.Cart.Items(ctx, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	issues, err := s.Cart.StockErrors(ctx, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.Checkout.Totals(ctx, sid, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := cartView{
		Items:       make([]cartLineView, 0, len(items)),
		StockErrors: make([]stockIssueView, 0, len(issues)),
		Totals:      totals,
		Summary:     usecase.CartSummary{Count: c.Count(), Total: c.Total(), Currency: s.Checkout.Currency},
		Message:     msg,
	}
	for _, it := range items {
		v.Items = append(v.Items, cartLineView{
			ProductID: it.Product.ID,
			Name:      it.Line.Name,
			Slug:      it.Product.Slug,
			ImageURL:  it.Product.ImageURL,
			Qty:       it.Line.Qty,
			UnitPrice: it.Line.Price,
			Subtotal:  it.Subtotal,
			Meta:      it.Line.Meta,
		})
	}
	for _, is := range issues {
		iv := stockIssueView{ProductID: is.Product.ID, Name: is.Product.Name, Requested: is.Requested, Available: is.Available}
		if is.Variant != nil {
			iv.Variant = is.Variant.Label()
		}
		v.StockErrors = append(v.StockErrors, iv)
	}
	writeJSON(w, code, v)
}

func (s *Server) loadCart(w http.ResponseWriter, r *http.Request) (*domain.Cart, bool) {
	c, err := s.Cart.Load(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return c, true
}

// activeProduct hides inactive products from the storefront.
func (s *Server) activeProduct(r *http.Request, id uuid.UUID) (*domain.Product, error) {
	p, err := s.Products.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	s.renderCart(w, r, c, http.StatusOK, "")
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	p, err := s.activeProduct(r, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	added, err := s.Cart.AddWithinStock(r.Context(), c, p, req.Qty, usecase.AddOptions{Meta: req.Meta})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if added == 0 {
		writeJSON(w, http.StatusConflict, errorBody{Error: fmt.Sprintf("no queda stock de %s", p.Name)})
		return
	}
	if err := s.Cart.Save(r.Context(), sessionID(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	msg := ""
	if added < req.Qty {
		msg = fmt.Sprintf("solo se agregaron %d unidades de %s por stock", added, p.Name)
	}
	s.renderCart(w, r, c, http.StatusOK, msg)
}

func (s *Server) apiCartUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	if _, inCart := c.Line(id); !inCart {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	p, err := s.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kept, err := s.Cart.SetWithinStock(r.Context(), c, p, req.Qty, req.Meta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Cart.Save(r.Context(), sessionID(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	msg := ""
	if kept < req.Qty {
		msg = fmt.Sprintf("solo hay %d unidades disponibles de %s", kept, p.Name)
	}
	s.renderCart(w, r, c, http.StatusOK, msg)
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	c.Remove(id)
	if err := s.Cart.Save(r.Context(), sessionID(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	s.renderCart(w, r, c, http.StatusOK, "")
}

func (s *Server) apiCartClear(w http.ResponseWriter, r *http.Request) {
	if err := s.Cart.Discard(r.Context(), sessionID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	s.renderCart(w, r, domain.NewCart(), http.StatusOK, "")
}

func (s *Server) apiCartNormalize(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	touched, err := s.Cart.NormalizeToStock(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Cart.Save(r.Context(), sessionID(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	msg := ""
	if touched > 0 {
		msg = "ajustamos tu carrito al stock disponible"
	}
	s.renderCart(w, r, c, http.StatusOK, msg)
}
