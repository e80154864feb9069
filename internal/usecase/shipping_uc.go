package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

// ShippingUC is the back-office side of shipping methods.
type ShippingUC struct {
	Methods domain.ShippingMethodRepo
}

func (uc *ShippingUC) List(ctx context.Context) ([]domain.ShippingMethod, error) {
	return uc.Methods.List(ctx)
}

func (uc *ShippingUC) Save(ctx context.Context, m *domain.ShippingMethod) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return domain.InvalidInput("nombre vacío")
	}
	if m.Cost.IsNegative() {
		return domain.InvalidInput("costo negativo")
	}
	if m.Slug = domain.Slugify(m.Slug); m.Slug == "" {
		m.Slug = domain.Slugify(m.Name)
	}
	return uc.Methods.Save(ctx, m)
}

func (uc *ShippingUC) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.InvalidInput("id vacío")
	}
	return uc.Methods.Delete(ctx, id)
}
