package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type ShippingMethodRepo struct{ db *gorm.DB }

func NewShippingMethodRepo(db *gorm.DB) *ShippingMethodRepo {
	return &ShippingMethodRepo{db: db}
}

// ListActive devuelve los métodos activos ordenados por DisplayOrder
func (r *ShippingMethodRepo) ListActive(ctx context.Context) ([]domain.ShippingMethod, error) {
	var list []domain.ShippingMethod
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("display_order asc, id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ShippingMethodRepo) List(ctx context.Context) ([]domain.ShippingMethod, error) {
	var list []domain.ShippingMethod
	if err := r.db.WithContext(ctx).Order("display_order asc, id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ShippingMethodRepo) FindActiveByID(ctx context.Context, id uuid.UUID) (*domain.ShippingMethod, error) {
	var m domain.ShippingMethod
	if err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// Save inserta o actualiza; el slug es la clave natural
func (r *ShippingMethodRepo) Save(ctx context.Context, m *domain.ShippingMethod) error {
	m.Cost = m.Cost.Round(2)
	if m.ID != uuid.Nil {
		return r.db.WithContext(ctx).Save(m).Error
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.ShippingMethod
		err := tx.Where("slug = ?", m.Slug).First(&existing).Error
		if err == nil {
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
			return tx.Save(m).Error
		} else if err == gorm.ErrRecordNotFound {
			m.ID = uuid.New()
			return tx.Create(m).Error
		}
		return err
	})
}

func (r *ShippingMethodRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.ShippingMethod{}, "id = ?", id).Error
}

func (r *ShippingMethodRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ShippingMethod{}).Count(&n).Error
	return n, err
}
