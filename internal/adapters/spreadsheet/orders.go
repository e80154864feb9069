package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/tiendavirtual/internal/domain"
	"github.com/phenrril/tiendavirtual/internal/usecase"
)

const (
	ordersSheet = "Pedidos"
	itemsSheet  = "Artículos"
)

var (
	orderHeader = []any{"ID", "Fecha", "Cliente", "Email", "Teléfono", "Dirección", "Ciudad", "CP", "Pago", "Estado", "Envío", "Subtotal", "Costo envío", "Total", "Seguimiento"}
	itemHeader  = []any{"Pedido", "Producto", "Variante", "Personalización", "Cantidad", "Precio unitario", "Subtotal"}
)

// WriteOrders renders one row per order and one row per order item.
func WriteOrders(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return err
	}
	if err := setRow(f, ordersSheet, 1, orderHeader); err != nil {
		return err
	}
	if err := setRow(f, itemsSheet, 1, itemHeader); err != nil {
		return err
	}
	itemRow := 2
	for i, o := range orders {
		method := ""
		if o.ShippingMethod != nil {
			method = o.ShippingMethod.Name
		}
		row := []any{
			o.ID.String(), o.CreatedAt.Format("2006-01-02 15:04"), o.Name, o.Email, o.Phone,
			o.Address, o.City, o.PostalCode, string(o.PaymentMethod), string(o.PaymentStatus), method,
			o.Subtotal.InexactFloat64(), o.ShippingCost.InexactFloat64(), o.Total.InexactFloat64(), o.TrackingToken,
		}
		if err := setRow(f, ordersSheet, i+2, row); err != nil {
			return err
		}
		for _, it := range o.Items {
			variant, pers := describe(it.Personalization)
			row := []any{o.ID.String(), it.Title, variant, pers, it.Qty, it.UnitPrice.InexactFloat64(), it.Subtotal.InexactFloat64()}
			if err := setRow(f, itemsSheet, itemRow, row); err != nil {
				return err
			}
			itemRow++
		}
	}
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func describe(p *domain.Personalization) (variant, pers string) {
	if p == nil {
		return "", ""
	}
	if p.Size != "" || p.Color != "" {
		variant = strings.Trim(p.Size+"/"+p.Color, "/")
	}
	var parts []string
	if p.Text != "" {
		parts = append(parts, fmt.Sprintf("texto %q", p.Text))
	}
	if p.TextColor != "" {
		parts = append(parts, "color "+p.TextColor)
	}
	if p.Style != "" {
		parts = append(parts, "estilo "+string(p.Style))
	}
	return variant, strings.Join(parts, ", ")
}

// ReadStock parses the first sheet of a stock workbook. Columns are slug,
// size, color and stock; a header row and blank rows are skipped.
func ReadStock(r io.Reader) ([]usecase.StockUpdate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx inválido: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	var out []usecase.StockUpdate
	for i, row := range rows {
		col := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		slug := col(0)
		if slug == "" {
			continue
		}
		if i == 0 && strings.EqualFold(slug, "slug") {
			continue
		}
		stock, err := strconv.Atoi(col(3))
		if err != nil || stock < 0 {
			return nil, domain.InvalidInput(fmt.Sprintf("stock inválido en la fila %d", i+1))
		}
		out = append(out, usecase.StockUpdate{Slug: slug, Size: col(1), Color: col(2), Stock: stock})
	}
	return out, nil
}
