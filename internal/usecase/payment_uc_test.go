package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type fakeGateway struct{ started int }

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) StartCheckout(_ context.Context, o *domain.Order) (string, string, error) {
	g.started++
	return "https://pay.test/" + o.ID.String(), "ref-" + o.TrackingToken[:4], nil
}

func TestPayment_StartCardCheckoutStoresRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 3)
	f.fill(t, map[*domain.Product]int{p: 1})
	o, err := f.order.CreatePendingCardOrder(ctx, f.sid, buyer())
	require.NoError(t, err)

	gw := &fakeGateway{}
	uc := &PaymentUC{Orders: f.orders, Gateway: gw}
	url, err := uc.StartCardCheckout(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/"+o.ID.String(), url)

	got, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "ref-"+o.TrackingToken[:4], got.PaymentRef)

	got.PaymentStatus = domain.PaymentPaid
	_, err = uc.StartCardCheckout(ctx, got)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, gw.started)
}

func TestDashboard_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Gorra", "10.00", 5)
	f.fill(t, map[*domain.Product]int{p: 1})
	_, err := f.order.CreateFromCart(ctx, f.sid, buyer())
	require.NoError(t, err)
	f.fill(t, map[*domain.Product]int{p: 1})
	_, err = f.order.CreatePendingCardOrder(ctx, f.sid, buyer())
	require.NoError(t, err)

	s, err := (&DashboardUC{Products: f.products, Orders: f.orders}).Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Products)
	assert.EqualValues(t, 2, s.Orders)
	assert.EqualValues(t, 2, s.PendingOrders)
	assert.Len(t, s.LastOrders, 2)
}
