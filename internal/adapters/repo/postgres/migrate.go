package postgres

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Category{}, &domain.Brand{}, &domain.Product{}, &domain.Variant{},
		&domain.ShippingMethod{}, &domain.Customer{}, &domain.Order{}, &domain.OrderItem{},
	)
}

var defaultShipping = []domain.ShippingMethod{
	{Name: "Estándar (48/72h)", Slug: "standard", Cost: decimal.RequireFromString("3.99"), Active: true, DisplayOrder: 1},
	{Name: "Exprés (24h)", Slug: "express", Cost: decimal.RequireFromString("7.99"), Active: true, DisplayOrder: 2},
}

// SeedShipping creates the default methods when the table is empty.
func SeedShipping(ctx context.Context, repo *ShippingMethodRepo) error {
	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, m := range defaultShipping {
		m := m
		if err := repo.Save(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}
