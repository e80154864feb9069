package usecase

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func personalizable() *domain.Product {
	return &domain.Product{
		Family:                domain.FamilyStandard,
		BasePrice:             dec("10.00"),
		AllowsPersonalization: true,
		NameSurcharge:         dec("3.00"),
		ColorSurcharge:        dec("3.00"),
		TextureSurcharge:      dec("2.00"),
	}
}

func TestPriceTextAndCustomColorWithVariant(t *testing.T) {
	calc := NewPricingCalculator()
	got := calc.Price(personalizable(), &domain.Variant{Surcharge: dec("0.50")}, &domain.Personalization{Text: "ANA", TextColor: "#123456"})
	assert.True(t, got.Equal(dec("16.50")), got.String())
}

func TestPricePantsTornPatched(t *testing.T) {
	p := &domain.Product{
		Family:           domain.FamilyPants,
		BasePrice:        dec("25.00"),
		ColorSurcharge:   dec("5.00"),
		TextureSurcharge: dec("5.00"),
	}
	calc := NewPricingCalculator()

	cases := map[domain.PantsStyle]string{
		domain.StyleStandard:    "25.00",
		domain.StyleTorn:        "30.00",
		domain.StylePatched:     "30.00",
		domain.StyleTornPatched: "35.00",
		"unknown":               "25.00",
	}
	for style, want := range cases {
		got := calc.Price(p, nil, &domain.Personalization{Style: style, Text: "ignored"})
		assert.True(t, got.Equal(dec(want)), "%s: %s", style, got)
	}
}

func TestPriceBasicColorsAreFree(t *testing.T) {
	calc := NewPricingCalculator()
	for _, c := range []string{"", "#fff", "#FFFFFF", " #000 ", "#000000"} {
		got := calc.Price(personalizable(), nil, &domain.Personalization{TextColor: c})
		assert.True(t, got.Equal(dec("10.00")), "%q: %s", c, got)
	}
}

func TestPriceTextureAndNoPersonalization(t *testing.T) {
	calc := NewPricingCalculator()
	p := personalizable()

	got := calc.Price(p, nil, &domain.Personalization{PreviewURL: "/media/preview.png"})
	assert.True(t, got.Equal(dec("12.00")), got.String())

	assert.True(t, calc.Price(p, nil, nil).Equal(dec("10.00")))

	p.AllowsPersonalization = false
	got = calc.Price(p, &domain.Variant{Surcharge: dec("1.25")}, &domain.Personalization{Text: "X", TextColor: "#123"})
	assert.True(t, got.Equal(dec("11.25")), got.String())
}

func TestPriceUnknownFamilyFallsBackToStandard(t *testing.T) {
	p := personalizable()
	p.Family = "hats"
	got := NewPricingCalculator().Price(p, nil, &domain.Personalization{Text: "X"})
	assert.True(t, got.Equal(dec("13.00")), got.String())
}
