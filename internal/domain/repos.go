package domain

import (
	"context"

	"github.com/google/uuid"
)

type ProductRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	ListAll(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, p *Product) error
	UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)

	// LockByID reads the row FOR UPDATE; only meaningful inside WithinTx.
	LockByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// DecrementStock fails with ErrInsufficientStock instead of going negative.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	// DecrementStockClamped never leaves stock below zero.
	DecrementStockClamped(ctx context.Context, id uuid.UUID, qty int) error
	// SetStock writes only the stock column.
	SetStock(ctx context.Context, id uuid.UUID, stock int) error

	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*Variant, error)
	FindVariantByAttrs(ctx context.Context, productID uuid.UUID, size, color string) (*Variant, error)
	LockVariant(ctx context.Context, id uuid.UUID) (*Variant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	SaveVariant(ctx context.Context, v *Variant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	DecrementVariantStock(ctx context.Context, id uuid.UUID, qty int) error
	DecrementVariantStockClamped(ctx context.Context, id uuid.UUID, qty int) error
	SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error
}

type TaxonomyRepo interface {
	ListCategories(ctx context.Context) ([]Category, error)
	SaveCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CategorySlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	SaveBrand(ctx context.Context, b *Brand) error
	DeleteBrand(ctx context.Context, id uuid.UUID) error
	BrandSlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
}

type OrderFilter struct {
	Status   PaymentStatus
	Query    string
	Page     int
	PageSize int
}

type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	AddItem(ctx context.Context, it *OrderItem) error
	UpdateTotals(ctx context.Context, o *Order) error
	UpdatePayment(ctx context.Context, id uuid.UUID, status PaymentStatus, ref string) error
	SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error
	// MarkNotified flips the flag once; false means someone already did.
	MarkNotified(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByTrackingToken(ctx context.Context, token string) (*Order, error)
	List(ctx context.Context, f OrderFilter) ([]Order, int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	Count(ctx context.Context, status PaymentStatus) (int64, error)
}

type ShippingMethodRepo interface {
	ListActive(ctx context.Context) ([]ShippingMethod, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*ShippingMethod, error)
	List(ctx context.Context) ([]ShippingMethod, error)
	Save(ctx context.Context, m *ShippingMethod) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type CustomerRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
}

// TxRepos are repositories bound to a single open transaction.
type TxRepos struct {
	Products ProductRepo
	Orders   OrderRepo
	Shipping ShippingMethodRepo
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

// SessionStore is a per-session key/value store; values travel as JSON.
type SessionStore interface {
	Get(ctx context.Context, sid, key string, dst any) (bool, error)
	Set(ctx context.Context, sid, key string, v any) error
	Delete(ctx context.Context, sid string, keys ...string) error
}

// PaymentGateway starts a hosted card checkout for an initiated order and
// returns the redirect URL plus the provider reference.
type PaymentGateway interface {
	Name() string
	StartCheckout(ctx context.Context, o *Order) (redirectURL, ref string, err error)
}

type OrderNotifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}
