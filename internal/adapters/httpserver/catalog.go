package httpserver

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type productList struct {
	Items    []domain.Product `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query:        strings.TrimSpace(q.Get("q")),
		CategorySlug: q.Get("category"),
		BrandSlug:    q.Get("brand"),
		Sort:         q.Get("sort"),
		Page:         queryInt(r, "page", 1),
		PageSize:     queryInt(r, "page_size", 20),
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	list, total, err := s.Products.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productList{Items: list, Total: total, Page: f.Page, PageSize: f.PageSize})
}

func (s *Server) apiProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Products.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type priceResponse struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Available int             `json:"available"`
}

// apiProductPrice previews the unit price for a personalization before it is
// added to the cart.
func (s *Server) apiProductPrice(w http.ResponseWriter, r *http.Request) {
	p, err := s.Products.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var meta domain.Personalization
	if err := decodeJSON(r, &meta); err != nil {
		writeError(w, r, err)
		return
	}
	price, available, err := s.Cart.Quote(r.Context(), p, &meta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{UnitPrice: price.Round(2), Available: available})
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.Products.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiBrands(w http.ResponseWriter, r *http.Request) {
	list, err := s.Products.Brands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiShippingMethods(w http.ResponseWriter, r *http.Request) {
	list, err := s.Checkout.ShippingMethods(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
