package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

func (r *OrderRepo) AddItem(ctx context.Context, it *domain.OrderItem) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	it.FillSubtotal()
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *OrderRepo) UpdateTotals(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", o.ID).Updates(map[string]any{
		"shipping_method_id": o.ShippingMethodID,
		"shipping_cost":      o.ShippingCost.Round(2),
		"subtotal":           o.Subtotal.Round(2),
		"total":              o.Total.Round(2),
	}).Error
}

func (r *OrderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, ref string) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Updates(map[string]any{
		"payment_status": status,
		"payment_ref":    ref,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Update("payment_ref", ref).Error
}

func (r *OrderRepo) MarkNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ? AND notified = ?", id, false).Update("notified", true)
	return res.RowsAffected == 1, res.Error
}

func (r *OrderRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("title asc") }).
		Preload("ShippingMethod")
}

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	if err := r.preloaded(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// LockByID locks the order row and then loads its items in a second query.
func (r *OrderRepo) LockByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Where("order_id = ?", o.ID).Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) FindByTrackingToken(ctx context.Context, token string) (*domain.Order, error) {
	var o domain.Order
	if err := r.preloaded(ctx).First(&o, "tracking_token = ?", token).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if f.Status != "" {
		q = q.Where("payment_status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ? OR tracking_token = ?", like, like, s)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	var list []domain.Order
	err := q.Order("created_at desc").Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Preload("Items").Preload("ShippingMethod").Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Order, error) {
	var list []domain.Order
	err := r.preloaded(ctx).Where("customer_id = ?", customerID).Order("created_at desc").Find(&list).Error
	return list, err
}

func (r *OrderRepo) Count(ctx context.Context, status domain.PaymentStatus) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if status != "" {
		q = q.Where("payment_status = ?", status)
	}
	err := q.Count(&n).Error
	return n, err
}
