package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

// PricingStrategy prices one unit of a product family. Implementations
// receive the base price with the variant surcharge already added.
type PricingStrategy interface {
	Family() domain.Family
	Price(p *domain.Product, price decimal.Decimal, pers *domain.Personalization) decimal.Decimal
}

var basicColors = map[string]struct{}{
	"":        {},
	"#fff":    {},
	"#ffffff": {},
	"#000":    {},
	"#000000": {},
}

func isBasicColor(c string) bool {
	_, ok := basicColors[strings.ToLower(strings.TrimSpace(c))]
	return ok
}

type StandardPricing struct{}

func (StandardPricing) Family() domain.Family { return domain.FamilyStandard }

func (StandardPricing) Price(p *domain.Product, price decimal.Decimal, pers *domain.Personalization) decimal.Decimal {
	if !p.AllowsPersonalization || pers == nil {
		return price
	}
	if strings.TrimSpace(pers.Text) != "" {
		price = price.Add(p.NameSurcharge)
	}
	if !isBasicColor(pers.TextColor) {
		price = price.Add(p.ColorSurcharge)
	}
	if strings.TrimSpace(pers.PreviewURL) != "" {
		price = price.Add(p.TextureSurcharge)
	}
	return price
}

// PantsPricing charges by finish: torn uses the color surcharge, patched the
// texture surcharge.
type PantsPricing struct{}

func (PantsPricing) Family() domain.Family { return domain.FamilyPants }

func (PantsPricing) Price(p *domain.Product, price decimal.Decimal, pers *domain.Personalization) decimal.Decimal {
	if pers == nil {
		return price
	}
	switch domain.PantsStyle(strings.ToLower(strings.TrimSpace(string(pers.Style)))) {
	case domain.StyleTorn:
		price = price.Add(p.ColorSurcharge)
	case domain.StylePatched:
		price = price.Add(p.TextureSurcharge)
	case domain.StyleTornPatched:
		price = price.Add(p.ColorSurcharge).Add(p.TextureSurcharge)
	}
	return price
}

type PricingCalculator struct {
	strategies map[domain.Family]PricingStrategy
	fallback   PricingStrategy
}

func NewPricingCalculator(extra ...PricingStrategy) *PricingCalculator {
	c := &PricingCalculator{strategies: map[domain.Family]PricingStrategy{}, fallback: StandardPricing{}}
	for _, s := range append([]PricingStrategy{StandardPricing{}, PantsPricing{}}, extra...) {
		c.strategies[s.Family()] = s
	}
	return c
}

func (c *PricingCalculator) strategyFor(f domain.Family) PricingStrategy {
	if s, ok := c.strategies[f]; ok {
		return s
	}
	return c.fallback
}

// Price returns the unit price without rounding; callers round on persist.
func (c *PricingCalculator) Price(p *domain.Product, v *domain.Variant, pers *domain.Personalization) decimal.Decimal {
	price := p.BasePrice
	if v != nil {
		price = price.Add(v.Surcharge)
	}
	return c.strategyFor(p.Family).Price(p, price, pers)
}
