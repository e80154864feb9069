package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

// TaxonomyRepo stores categories and brands.
type TaxonomyRepo struct{ db *gorm.DB }

func NewTaxonomyRepo(db *gorm.DB) *TaxonomyRepo { return &TaxonomyRepo{db: db} }

func (r *TaxonomyRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var list []domain.Category
	err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error
	return list, err
}

func (r *TaxonomyRepo) SaveCategory(ctx context.Context, c *domain.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// DeleteCategory detaches products before removing the row.
func (r *TaxonomyRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Category{}, "id = ?", id).Error
	})
}

func (r *TaxonomyRepo) CategorySlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("slug = ? AND id <> ?", slug, except).Count(&n).Error
	return n > 0, err
}

func (r *TaxonomyRepo) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var list []domain.Brand
	err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error
	return list, err
}

func (r *TaxonomyRepo) SaveBrand(ctx context.Context, b *domain.Brand) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *TaxonomyRepo) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Product{}).Where("brand_id = ?", id).Update("brand_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Brand{}, "id = ?", id).Error
	})
}

func (r *TaxonomyRepo) BrandSlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Brand{}).Where("slug = ? AND id <> ?", slug, except).Count(&n).Error
	return n > 0, err
}
