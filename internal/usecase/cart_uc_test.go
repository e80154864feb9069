package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func TestCart_AddAccumulatesAndOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 10)
	c := domain.NewCart()

	require.NoError(t, f.cart.Add(ctx, c, p, 2, AddOptions{}))
	require.NoError(t, f.cart.Add(ctx, c, p, 3, AddOptions{}))
	assert.Equal(t, 5, c.Quantity(p.ID))
	line, _ := c.Line(p.ID)
	assert.Equal(t, "Gorra", line.Name)
	assert.True(t, line.Price.Equal(dec("10")))

	require.NoError(t, f.cart.Add(ctx, c, p, 1, AddOptions{Override: true}))
	assert.Equal(t, 1, c.Quantity(p.ID))

	price := dec("7.50")
	require.NoError(t, f.cart.Add(ctx, c, p, 1, AddOptions{UnitPrice: &price}))
	line, _ = c.Line(p.ID)
	assert.True(t, line.Price.Equal(price))
	assert.True(t, c.Total().Equal(dec("15")))
}

func TestCart_SetZeroRemovesAndNegativeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 10)
	c := domain.NewCart()

	require.NoError(t, f.cart.Set(ctx, c, p, 4, nil))
	assert.Equal(t, 4, c.Quantity(p.ID))
	require.NoError(t, f.cart.Set(ctx, c, p, 0, nil))
	assert.True(t, c.IsEmpty())
	assert.ErrorIs(t, f.cart.Set(ctx, c, p, -1, nil), domain.ErrInvalidQuantity)
}

func TestCart_SaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Gorra", "10.00", 10)
	b := f.product(t, "Taza", "5.00", 10)
	c := f.fill(t, map[*domain.Product]int{a: 2, b: 1})

	loaded, err := f.cart.Load(ctx, f.sid)
	require.NoError(t, err)
	assert.Equal(t, c.Count(), loaded.Count())
	assert.True(t, loaded.Total().Equal(dec("25")))

	require.NoError(t, f.cart.Discard(ctx, f.sid))
	loaded, err = f.cart.Load(ctx, f.sid)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestCart_AddWithinStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 3)
	c := domain.NewCart()

	added, err := f.cart.AddWithinStock(ctx, c, p, 2, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	added, err = f.cart.AddWithinStock(ctx, c, p, 5, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	added, err = f.cart.AddWithinStock(ctx, c, p, 1, AddOptions{})
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 3, c.Quantity(p.ID))

	_, err = f.cart.AddWithinStock(ctx, c, p, 0, AddOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCart_StockErrorsAndNormalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok := f.product(t, "Gorra", "10.00", 5)
	short := f.product(t, "Taza", "5.00", 2)
	gone := f.product(t, "Bolsa", "3.00", 0)
	c := domain.NewCart()
	require.NoError(t, f.cart.Add(ctx, c, ok, 5, AddOptions{}))
	require.NoError(t, f.cart.Add(ctx, c, short, 4, AddOptions{}))
	require.NoError(t, f.cart.Add(ctx, c, gone, 1, AddOptions{}))
	c.Lines[uuid.NewString()] = domain.CartLine{Qty: 1, Price: dec("1")}

	issues, err := f.cart.StockErrors(ctx, c)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	byID := map[uuid.UUID]StockIssue{}
	for _, is := range issues {
		byID[is.Product.ID] = is
	}
	assert.Equal(t, 4, byID[short.ID].Requested)
	assert.Equal(t, 2, byID[short.ID].Available)
	assert.Equal(t, 0, byID[gone.ID].Available)

	touched, err := f.cart.NormalizeToStock(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 3, touched)
	assert.Equal(t, 5, c.Quantity(ok.ID))
	assert.Equal(t, 2, c.Quantity(short.ID))
	assert.Len(t, c.Lines, 2)

	touched, err = f.cart.NormalizeToStock(ctx, c)
	require.NoError(t, err)
	assert.Zero(t, touched)
	issues, err = f.cart.StockErrors(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCart_VariantStockWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta", "12.00", 50)
	v := &domain.Variant{ProductID: p.ID, Size: "M", Color: "rojo", Stock: 1, Surcharge: dec("1.00")}
	require.NoError(t, f.products.SaveVariant(ctx, v))

	c := domain.NewCart()
	meta := &domain.Personalization{Size: "M", Color: "rojo"}
	require.NoError(t, f.cart.Add(ctx, c, p, 2, AddOptions{Meta: meta}))
	line, _ := c.Line(p.ID)
	assert.True(t, line.Price.Equal(dec("13")))

	issues, err := f.cart.StockErrors(ctx, c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.NotNil(t, issues[0].Variant)
	assert.Equal(t, v.ID, issues[0].Variant.ID)
	assert.Equal(t, 1, issues[0].Available)
}

func TestCart_MissingVariantIsOutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Taza", "8.00", 10)
	require.NoError(t, f.products.SaveVariant(ctx, &domain.Variant{ProductID: p.ID, Size: "M", Color: "azul", Stock: 5}))

	c := domain.NewCart()
	c.Put(p.ID, domain.CartLine{Qty: 1, Price: dec("8"), Meta: &domain.Personalization{Size: "XL", Color: "verde"}})

	issues, err := f.cart.StockErrors(ctx, c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Nil(t, issues[0].Variant)
	assert.Equal(t, 1, issues[0].Requested)
	assert.Equal(t, 0, issues[0].Available)

	touched, err := f.cart.NormalizeToStock(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, touched)
	assert.True(t, c.IsEmpty())
}

func TestCart_SetWithinStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 3)
	c := domain.NewCart()

	kept, err := f.cart.SetWithinStock(ctx, c, p, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, kept)
	assert.Equal(t, 3, c.Quantity(p.ID))

	kept, err = f.cart.SetWithinStock(ctx, c, p, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, kept)
	assert.True(t, c.IsEmpty())
}
