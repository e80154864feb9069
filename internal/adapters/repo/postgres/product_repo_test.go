package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func TestProductRepo_DecrementStockIsGuarded(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Gorra", "12.00", 3)

	require.NoError(t, repo.DecrementStock(ctx, p.ID, 2))
	err := repo.DecrementStock(ctx, p.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	require.NoError(t, repo.DecrementStockClamped(ctx, p.ID, 5))
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestProductRepo_Variants(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Camiseta", "15.00", 0)

	m := &domain.Variant{ProductID: p.ID, Size: "M", Color: "rojo", Stock: 4, Surcharge: decimal.RequireFromString("0.50")}
	l := &domain.Variant{ProductID: p.ID, Size: "L", Color: "rojo", Stock: 1}
	require.NoError(t, repo.SaveVariant(ctx, m))
	require.NoError(t, repo.SaveVariant(ctx, l))

	got, err := repo.FindVariantByAttrs(ctx, p.ID, "L", "")
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	got, err = repo.FindVariant(ctx, p.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Surcharge.Equal(decimal.RequireFromString("0.50")))

	_, err = repo.FindVariant(ctx, uuid.New(), m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.DecrementVariantStock(ctx, m.ID, 4))
	assert.ErrorIs(t, repo.DecrementVariantStock(ctx, m.ID, 1), domain.ErrInsufficientStock)

	list, err := repo.ListVariants(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestProductRepo_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepo(db)
	tax := NewTaxonomyRepo(db)
	ctx := context.Background()

	cat := &domain.Category{ID: uuid.New(), Name: "Pantalones", Slug: "pantalones"}
	require.NoError(t, tax.SaveCategory(ctx, cat))

	jeans := seedProduct(t, db, "Vaquero roto", "25.00", 5)
	jeans.CategoryID = &cat.ID
	require.NoError(t, repo.Save(ctx, jeans))
	gorra := seedProduct(t, db, "Gorra", "9.00", 5)
	hidden := seedProduct(t, db, "Oculto", "1.00", 5)
	hidden.Active = false
	require.NoError(t, repo.Save(ctx, hidden))

	list, total, err := repo.List(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	list, _, err = repo.List(ctx, domain.ProductFilter{CategorySlug: "pantalones"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, jeans.ID, list[0].ID)
	require.NotNil(t, list[0].Category)
	assert.Equal(t, "Pantalones", list[0].Category.Name)

	list, _, err = repo.List(ctx, domain.ProductFilter{Query: "GORRA"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, total, err = repo.List(ctx, domain.ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	taken, err := repo.SlugTaken(ctx, "gorra", uuid.New())
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.SlugTaken(ctx, "gorra", gorra.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProductRepo_DeleteRemovesVariants(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Sudadera", "30.00", 2)
	require.NoError(t, repo.SaveVariant(ctx, &domain.Variant{ProductID: p.ID, Size: "S"}))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	list, err := repo.ListVariants(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), domain.ErrNotFound)
}
