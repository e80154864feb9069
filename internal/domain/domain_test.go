package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Lámpara Luna":          "lampara-luna",
		"  Camiseta  Básica! ":  "camiseta-basica",
		"Pantalón roto/parches": "pantalon-roto-parches",
		"Niño ÑANDÚ 2024":       "nino-nandu-2024",
		"---":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUniqueSlugAppendsSuffix(t *testing.T) {
	used := map[string]bool{"gorra": true, "gorra-2": true}
	taken := func(_ context.Context, s string) (bool, error) { return used[s], nil }

	slug, err := UniqueSlug(context.Background(), "Gorra", "", taken)
	require.NoError(t, err)
	assert.Equal(t, "gorra-3", slug)

	slug, err = UniqueSlug(context.Background(), "", "fallback name", taken)
	require.NoError(t, err)
	assert.Equal(t, "fallback-name", slug)
}

func TestTrackingToken(t *testing.T) {
	a, err := NewTrackingToken()
	require.NoError(t, err)
	b, err := NewTrackingToken()
	require.NoError(t, err)
	assert.Len(t, a, TrackingTokenLen)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.Contains(t, tokenAlphabet, string(r))
	}
}

func TestCartArithmetic(t *testing.T) {
	c := NewCart()
	p1, p2 := uuid.New(), uuid.New()
	c.Put(p1, CartLine{Qty: 2, Price: decimal.RequireFromString("10.00")})
	c.Put(p2, CartLine{Qty: 1, Price: decimal.RequireFromString("4.50")})

	assert.Equal(t, 3, c.Count())
	assert.True(t, c.Total().Equal(decimal.RequireFromString("24.50")))
	assert.Equal(t, 2, c.Quantity(p1))

	c.Put(p1, CartLine{Qty: 0})
	_, ok := c.Line(p1)
	assert.False(t, ok)

	c.Remove(p2)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	assert.Equal(t, 0, c.Count())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransitionTo(PaymentPaid))
	assert.True(t, PaymentInitiated.CanTransitionTo(PaymentPaid))
	assert.False(t, PaymentPaid.CanTransitionTo(PaymentPaid))
	assert.False(t, PaymentPending.CanTransitionTo(PaymentInitiated))
	assert.False(t, PaymentPaid.CanTransitionTo(PaymentPending))
	assert.True(t, PaymentPaid.IsTerminal())
}

func TestShippingCostThresholdIsInclusive(t *testing.T) {
	m := &ShippingMethod{Cost: decimal.RequireFromString("5.00")}
	free := decimal.RequireFromString("50.00")

	assert.True(t, ShippingCost(decimal.RequireFromString("50.00"), free, m).IsZero())
	assert.True(t, ShippingCost(decimal.RequireFromString("49.99"), free, m).Equal(m.Cost))
	assert.True(t, ShippingCost(decimal.RequireFromString("10"), free, nil).IsZero())
}

func TestCheckoutDataValidate(t *testing.T) {
	d := CheckoutData{Email: " Ana@Example.com ", Name: "Ana", Address: "Calle 1", City: "Madrid", PostalCode: "28001"}
	d.Normalize()
	assert.Equal(t, "ana@example.com", d.Email)
	assert.Equal(t, PaymentCashOnDelivery, d.PaymentMethod)
	require.NoError(t, d.Validate())

	d.Email = "nope"
	assert.ErrorIs(t, d.Validate(), ErrInvalidInput)
}

func TestStockErrorUnwraps(t *testing.T) {
	err := error(&StockError{Title: "Gorra", Requested: 3, Available: 1})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Gorra")
}
