package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PantsStyle string

const (
	StyleStandard    PantsStyle = "standard"
	StyleTorn        PantsStyle = "torn"
	StylePatched     PantsStyle = "patched"
	StyleTornPatched PantsStyle = "torn-patched"
)

// Personalization is the customer supplied customization attached to a cart
// line and copied verbatim onto the order item.
type Personalization struct {
	Text       string     `json:"text,omitempty"`
	TextColor  string     `json:"text_color,omitempty"`
	PreviewURL string     `json:"preview_url,omitempty"`
	Style      PantsStyle `json:"style,omitempty"`
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	Size       string     `json:"size,omitempty"`
	Color      string     `json:"color,omitempty"`
}

// NamesVariant reports whether the metadata points at a concrete variant.
func (p *Personalization) NamesVariant() bool {
	if p == nil {
		return false
	}
	return (p.VariantID != nil && *p.VariantID != uuid.Nil) || strings.TrimSpace(p.Size) != "" || strings.TrimSpace(p.Color) != ""
}

type CartLine struct {
	Qty   int              `json:"qty"`
	Price decimal.Decimal  `json:"price"`
	Name  string           `json:"name"`
	Slug  string           `json:"slug"`
	Meta  *Personalization `json:"meta,omitempty"`

	// Explicit overrides honored by order creation instead of recomputing.
	PriceOverride    *decimal.Decimal `json:"price_override,omitempty"`
	SubtotalOverride *decimal.Decimal `json:"subtotal_override,omitempty"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is keyed by the product id in string form. Lines never hold qty <= 0.
type Cart struct {
	Lines map[string]CartLine `json:"lines"`
}

func NewCart() *Cart {
	return &Cart{Lines: map[string]CartLine{}}
}

func (c *Cart) ensure() {
	if c.Lines == nil {
		c.Lines = map[string]CartLine{}
	}
}

// Keys returns the line keys in a stable order.
func (c *Cart) Keys() []string {
	keys := make([]string, 0, len(c.Lines))
	for k := range c.Lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cart) Line(productID uuid.UUID) (CartLine, bool) {
	l, ok := c.Lines[productID.String()]
	return l, ok
}

// Put stores the line, or deletes it when qty <= 0.
func (c *Cart) Put(productID uuid.UUID, l CartLine) {
	c.ensure()
	if l.Qty <= 0 {
		delete(c.Lines, productID.String())
		return
	}
	c.Lines[productID.String()] = l
}

func (c *Cart) Remove(productID uuid.UUID) {
	delete(c.Lines, productID.String())
}

func (c *Cart) Clear() {
	c.Lines = map[string]CartLine{}
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Quantity(productID uuid.UUID) int {
	if l, ok := c.Line(productID); ok {
		return l.Qty
	}
	return 0
}
