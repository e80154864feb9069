package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendavirtual/internal/adapters/spreadsheet"
	"github.com/phenrril/tiendavirtual/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type orderList struct {
	Items []domain.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

func (s *Server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func orderFilter(r *http.Request) domain.OrderFilter {
	q := r.URL.Query()
	return domain.OrderFilter{
		Status:   domain.PaymentStatus(q.Get("status")),
		Query:    strings.TrimSpace(q.Get("q")),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 50),
	}
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request) {
	f := orderFilter(r)
	list, total, err := s.Orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderList{Items: list, Total: total, Page: f.Page})
}

func (s *Server) adminOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) adminMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Orders.MarkPaid(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().Str("order_id", id.String()).Msg("pedido marcado como pagado")
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) adminExportOrders(w http.ResponseWriter, r *http.Request) {
	f := orderFilter(r)
	f.Page, f.PageSize = 1, 5000
	list, _, err := s.Orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteOrders(&buf, list); err != nil {
		writeError(w, r, err)
		return
	}
	name := "pedidos-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) adminImportStock(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		writeError(w, r, domain.InvalidInput("archivo ilegible"))
		return
	}
	rows, err := spreadsheet.ReadStock(bytes.NewReader(data))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rep, err := s.Products.ImportStock(r.Context(), rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) adminProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query:           q.Get("q"),
		CategorySlug:    q.Get("category"),
		BrandSlug:       q.Get("brand"),
		Sort:            q.Get("sort"),
		Page:            queryInt(r, "page", 1),
		PageSize:        queryInt(r, "page_size", 50),
		IncludeInactive: true,
	}
	list, total, err := s.Products.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productList{Items: list, Total: total, Page: f.Page, PageSize: f.PageSize})
}

func (s *Server) adminSaveProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusCreated
	if r.PathValue("id") != "" {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.Products.Get(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		p.ID = id
		code = http.StatusOK
	}
	p.Category, p.Brand, p.Variants = nil, nil, nil
	if err := s.Products.Save(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, code, p)
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func decodeStock(r *http.Request) (uuid.UUID, int, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return uuid.Nil, 0, err
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		return uuid.Nil, 0, err
	}
	if req.Stock == nil {
		return uuid.Nil, 0, domain.InvalidInput("stock requerido")
	}
	return id, *req.Stock, nil
}

func (s *Server) adminSetStock(w http.ResponseWriter, r *http.Request) {
	id, stock, err := decodeStock(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.SetStock(r.Context(), id, stock); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminFixSlugs(w http.ResponseWriter, r *http.Request) {
	n, err := s.Products.FixSlugs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"changed": n})
}

func (s *Server) adminVariants(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.Products.ListVariants(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) adminSaveVariant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var v domain.Variant
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	v.ProductID = id
	if err := s.Products.SaveVariant(r.Context(), &v); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) adminSetVariantStock(w http.ResponseWriter, r *http.Request) {
	id, stock, err := decodeStock(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.SetVariantStock(r.Context(), id, stock); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "stock": stock})
}

func (s *Server) adminDeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.DeleteVariant(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminShippingMethods(w http.ResponseWriter, r *http.Request) {
	list, err := s.Shipping.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) adminSaveShippingMethod(w http.ResponseWriter, r *http.Request) {
	var m domain.ShippingMethod
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Shipping.Save(r.Context(), &m); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) adminDeleteShippingMethod(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Shipping.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminSaveCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.SaveCategory(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminSaveBrand(w http.ResponseWriter, r *http.Request) {
	var b domain.Brand
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.SaveBrand(r.Context(), &b); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) adminDeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Products.DeleteBrand(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
