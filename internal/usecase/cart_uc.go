package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const sessionCartKey = "cart"

type CartUC struct {
	Products domain.ProductRepo
	Pricing  *PricingCalculator
	Sessions domain.SessionStore
}

type AddOptions struct {
	// Override sets the quantity instead of accumulating.
	Override bool
	// Meta replaces the stored personalization only when non-nil.
	Meta *domain.Personalization
	// UnitPrice replaces the price snapshot; otherwise new lines are priced
	// by the calculator and existing lines keep theirs.
	UnitPrice        *decimal.Decimal
	PriceOverride    *decimal.Decimal
	SubtotalOverride *decimal.Decimal
}

// CartItem is a cart line joined with the live product.
type CartItem struct {
	Product  *domain.Product
	Line     domain.CartLine
	Subtotal decimal.Decimal
}

type StockIssue struct {
	Product   *domain.Product
	Variant   *domain.Variant
	Requested int
	Available int
}

func (uc *CartUC) Load(ctx context.Context, sid string) (*domain.Cart, error) {
	c := domain.NewCart()
	if _, err := uc.Sessions.Get(ctx, sid, sessionCartKey, c); err != nil {
		return nil, err
	}
	if c.Lines == nil {
		c.Lines = map[string]domain.CartLine{}
	}
	return c, nil
}

func (uc *CartUC) Save(ctx context.Context, sid string, c *domain.Cart) error {
	return uc.Sessions.Set(ctx, sid, sessionCartKey, c)
}

// Discard drops the stored cart for the session.
func (uc *CartUC) Discard(ctx context.Context, sid string) error {
	return uc.Sessions.Delete(ctx, sid, sessionCartKey)
}

func (uc *CartUC) Add(ctx context.Context, c *domain.Cart, p *domain.Product, qty int, opt AddOptions) error {
	line, exists := c.Line(p.ID)
	if opt.Meta != nil {
		line.Meta = opt.Meta
	}
	switch {
	case opt.UnitPrice != nil:
		line.Price = *opt.UnitPrice
	case !exists:
		v, err := uc.resolveVariant(ctx, p.ID, line.Meta)
		if err != nil {
			return err
		}
		line.Price = uc.Pricing.Price(p, v, line.Meta)
	}
	if opt.PriceOverride != nil {
		line.PriceOverride = opt.PriceOverride
	}
	if opt.SubtotalOverride != nil {
		line.SubtotalOverride = opt.SubtotalOverride
	}
	if !exists {
		line.Name, line.Slug = p.Name, p.Slug
	}
	if opt.Override {
		line.Qty = qty
	} else {
		line.Qty += qty
	}
	c.Put(p.ID, line)
	return nil
}

// AddWithinStock adds at most what stock still allows given the quantity
// already in the cart and returns how many units were actually added.
func (uc *CartUC) AddWithinStock(ctx context.Context, c *domain.Cart, p *domain.Product, qty int, opt AddOptions) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	meta := opt.Meta
	if meta == nil {
		if l, ok := c.Line(p.ID); ok {
			meta = l.Meta
		}
	}
	available, _, err := uc.available(ctx, p, meta)
	if err != nil {
		return 0, err
	}
	remaining := available - c.Quantity(p.ID)
	if remaining <= 0 {
		return 0, nil
	}
	if qty > remaining {
		qty = remaining
	}
	opt.Override = false
	return qty, uc.Add(ctx, c, p, qty, opt)
}

func (uc *CartUC) Set(ctx context.Context, c *domain.Cart, p *domain.Product, qty int, meta *domain.Personalization) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	if qty == 0 {
		c.Remove(p.ID)
		return nil
	}
	return uc.Add(ctx, c, p, qty, AddOptions{Override: true, Meta: meta})
}

// SetWithinStock sets the line quantity clamped to available stock and
// returns the quantity kept. Zero removes the line.
func (uc *CartUC) SetWithinStock(ctx context.Context, c *domain.Cart, p *domain.Product, qty int, meta *domain.Personalization) (int, error) {
	if qty < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if meta == nil {
		if l, ok := c.Line(p.ID); ok {
			meta = l.Meta
		}
	}
	available, _, err := uc.available(ctx, p, meta)
	if err != nil {
		return 0, err
	}
	if qty > available {
		qty = available
	}
	if qty < 0 {
		qty = 0
	}
	return qty, uc.Set(ctx, c, p, qty, meta)
}

func (uc *CartUC) Items(ctx context.Context, c *domain.Cart) ([]CartItem, error) {
	items := make([]CartItem, 0, len(c.Lines))
	for _, key := range c.Keys() {
		line := c.Lines[key]
		p, err := uc.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		items = append(items, CartItem{Product: p, Line: line, Subtotal: line.Subtotal()})
	}
	return items, nil
}

func (uc *CartUC) StockErrors(ctx context.Context, c *domain.Cart) ([]StockIssue, error) {
	var issues []StockIssue
	for _, key := range c.Keys() {
		line := c.Lines[key]
		p, err := uc.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		available, v, err := uc.available(ctx, p, line.Meta)
		if err != nil {
			return nil, err
		}
		if line.Qty > available {
			issues = append(issues, StockIssue{Product: p, Variant: v, Requested: line.Qty, Available: available})
		}
	}
	return issues, nil
}

// NormalizeToStock drops lines whose product vanished or ran out and clamps
// the rest to available stock. It returns the number of lines touched.
func (uc *CartUC) NormalizeToStock(ctx context.Context, c *domain.Cart) (int, error) {
	touched := 0
	for _, key := range c.Keys() {
		line := c.Lines[key]
		p, err := uc.lookup(ctx, key)
		if err != nil {
			return touched, err
		}
		if p == nil {
			delete(c.Lines, key)
			touched++
			continue
		}
		available, _, err := uc.available(ctx, p, line.Meta)
		if err != nil {
			return touched, err
		}
		switch {
		case available <= 0:
			delete(c.Lines, key)
			touched++
		case line.Qty > available:
			line.Qty = available
			c.Lines[key] = line
			touched++
		}
	}
	if touched > 0 {
		log.Debug().Int("lines", touched).Msg("carrito ajustado al stock")
	}
	return touched, nil
}

// lookup returns nil, nil for keys that no longer resolve to a product.
func (uc *CartUC) lookup(ctx context.Context, key string) (*domain.Product, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, nil
	}
	p, err := uc.Products.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// available reports the variant stock when the metadata names one and the
// product stock otherwise. A named variant that no longer exists has none
// left, so the line shows up as a stock issue before checkout.
func (uc *CartUC) available(ctx context.Context, p *domain.Product, meta *domain.Personalization) (int, *domain.Variant, error) {
	v, err := findVariant(ctx, uc.Products, p.ID, meta)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 0, nil, nil
	case err != nil:
		return 0, nil, err
	case v != nil:
		return v.Stock, v, nil
	}
	return p.Stock, nil, nil
}

func (uc *CartUC) resolveVariant(ctx context.Context, productID uuid.UUID, meta *domain.Personalization) (*domain.Variant, error) {
	v, err := findVariant(ctx, uc.Products, productID, meta)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// findVariant resolves the variant named by the metadata, by id first and
// then by size/color. It returns nil, nil when no variant is named.
func findVariant(ctx context.Context, repo domain.ProductRepo, productID uuid.UUID, meta *domain.Personalization) (*domain.Variant, error) {
	if !meta.NamesVariant() {
		return nil, nil
	}
	if meta.VariantID != nil && *meta.VariantID != uuid.Nil {
		return repo.FindVariant(ctx, productID, *meta.VariantID)
	}
	return repo.FindVariantByAttrs(ctx, productID, meta.Size, meta.Color)
}

// Quote prices one unit of p with the given personalization and reports the
// stock left for it.
func (uc *CartUC) Quote(ctx context.Context, p *domain.Product, meta *domain.Personalization) (decimal.Decimal, int, error) {
	available, v, err := uc.available(ctx, p, meta)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return uc.Pricing.Price(p, v, meta), available, nil
}
