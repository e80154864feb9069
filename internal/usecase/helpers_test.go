package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/tiendavirtual/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendavirtual/internal/adapters/session/memstore"
	"github.com/phenrril/tiendavirtual/internal/domain"
)

type fixture struct {
	db       *gorm.DB
	products *postgres.ProductRepo
	orders   *postgres.OrderRepo
	shipping *postgres.ShippingMethodRepo
	sessions *memstore.Store
	cart     *CartUC
	checkout *CheckoutUC
	order    *OrderUC
	sid      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: postgres.NewZeroLogger(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))

	f := &fixture{
		db:       db,
		products: postgres.NewProductRepo(db),
		orders:   postgres.NewOrderRepo(db),
		shipping: postgres.NewShippingMethodRepo(db),
		sessions: memstore.New(0),
		sid:      "sid-1",
	}
	pricing := NewPricingCalculator()
	f.cart = &CartUC{Products: f.products, Pricing: pricing, Sessions: f.sessions}
	f.checkout = &CheckoutUC{Cart: f.cart, Shipping: f.shipping, Sessions: f.sessions, FreeShippingFrom: dec("50.00"), Currency: "EUR"}
	f.order = &OrderUC{
		Tx:       postgres.NewTxManager(db),
		Orders:   f.orders,
		Cart:     f.cart,
		Checkout: f.checkout,
		Pricing:  pricing,
	}
	return f
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Slug:      domain.Slugify(name),
		Family:    domain.FamilyStandard,
		BasePrice: dec(price),
		Stock:     stock,
		Active:    true,
	}
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *fixture) method(t *testing.T, slug, cost string) *domain.ShippingMethod {
	t.Helper()
	m := &domain.ShippingMethod{Name: slug, Slug: slug, Cost: dec(cost), Active: true}
	require.NoError(t, f.shipping.Save(context.Background(), m))
	return m
}

// fill stores a cart with the given quantities, priced by the calculator.
func (f *fixture) fill(t *testing.T, lines map[*domain.Product]int) *domain.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.cart.Load(ctx, f.sid)
	require.NoError(t, err)
	for p, q := range lines {
		require.NoError(t, f.cart.Add(ctx, c, p, q, AddOptions{}))
	}
	require.NoError(t, f.cart.Save(ctx, f.sid, c))
	return c
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func buyer() domain.CheckoutData {
	return domain.CheckoutData{
		Email:      "Ana@Example.com",
		Name:       "Ana",
		Address:    "Calle 1",
		City:       "Madrid",
		PostalCode: "28001",
	}
}

type recordingNotifier struct{ calls int }

func (n *recordingNotifier) OrderPlaced(context.Context, *domain.Order) error {
	n.calls++
	return nil
}
