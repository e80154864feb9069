package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	p.BasePrice = p.BasePrice.Round(2)
	p.NameSurcharge = p.NameSurcharge.Round(2)
	p.ColorSurcharge = p.ColorSurcharge.Round(2)
	p.TextureSurcharge = p.TextureSurcharge.Round(2)
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *ProductRepo) UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Update("slug", slug).Error
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Preload("Category").Preload("Brand").First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepo) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Brand").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("size asc, color asc") }).
		First(&p, "slug = ?", slug).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if !f.IncludeInactive {
		q = q.Where("active = ?", true)
	}
	if f.CategorySlug != "" {
		q = q.Where("category_id IN (?)", r.db.Model(&domain.Category{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.BrandSlug != "" {
		q = q.Where("brand_id IN (?)", r.db.Model(&domain.Brand{}).Select("id").Where("slug = ?", f.BrandSlug))
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "price_desc":
		q = q.Order("base_price desc")
	case "price_asc":
		q = q.Order("base_price asc")
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("name asc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Offset(offset).Limit(f.PageSize).Preload("Category").Preload("Brand").Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	var list []domain.Product
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("slug = ? AND id <> ?", slug, except).Count(&n).Error
	return n > 0, err
}

func (r *ProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&n).Error
	return n, err
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&domain.Variant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *ProductRepo) LockByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// decrement runs a guarded UPDATE so concurrent checkouts cannot push stock
// below zero even without the row lock.
func decrement(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, qty int) error {
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func decrementClamped(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, qty int) error {
	return db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty)).Error
}

func setStock(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, stock int) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumn("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	return setStock(ctx, r.db, &domain.Product{}, id, stock)
}

func (r *ProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return decrement(ctx, r.db, &domain.Product{}, id, qty)
}

func (r *ProductRepo) DecrementStockClamped(ctx context.Context, id uuid.UUID, qty int) error {
	return decrementClamped(ctx, r.db, &domain.Product{}, id, qty)
}

// --- Variantes ---

func (r *ProductRepo) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*domain.Variant, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).First(&v, "id = ? AND product_id = ?", variantID, productID).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// FindVariantByAttrs filters by whichever of size and color is set.
func (r *ProductRepo) FindVariantByAttrs(ctx context.Context, productID uuid.UUID, size, color string) (*domain.Variant, error) {
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if s := strings.TrimSpace(size); s != "" {
		q = q.Where("size = ?", s)
	}
	if c := strings.TrimSpace(color); c != "" {
		q = q.Where("color = ?", c)
	}
	var v domain.Variant
	if err := q.Order("created_at asc").First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *ProductRepo) LockVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *ProductRepo) SaveVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.Surcharge = v.Surcharge.Round(2)
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *ProductRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	var list []domain.Variant
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("size asc, color asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return errors.New("variant id vacío")
	}
	return r.db.WithContext(ctx).Where("id = ?", variantID).Delete(&domain.Variant{}).Error
}

func (r *ProductRepo) DecrementVariantStock(ctx context.Context, id uuid.UUID, qty int) error {
	return decrement(ctx, r.db, &domain.Variant{}, id, qty)
}

func (r *ProductRepo) DecrementVariantStockClamped(ctx context.Context, id uuid.UUID, qty int) error {
	return decrementClamped(ctx, r.db, &domain.Variant{}, id, qty)
}

func (r *ProductRepo) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error {
	return setStock(ctx, r.db, &domain.Variant{}, id, stock)
}
