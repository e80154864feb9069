package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const (
	sessionCheckoutData   = "checkout_datos"
	sessionCheckoutPay    = "checkout_pago"
	sessionShippingMethod = "shipping_method_id"
)

type CheckoutUC struct {
	Cart             *CartUC
	Shipping         domain.ShippingMethodRepo
	Sessions         domain.SessionStore
	FreeShippingFrom decimal.Decimal
	Currency         string
}

type CartSummary struct {
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

func (uc *CheckoutUC) SaveData(ctx context.Context, sid string, d domain.CheckoutData) (domain.CheckoutData, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, uc.Sessions.Set(ctx, sid, sessionCheckoutData, d)
}

func (uc *CheckoutUC) Data(ctx context.Context, sid string) (*domain.CheckoutData, error) {
	var d domain.CheckoutData
	ok, err := uc.Sessions.Get(ctx, sid, sessionCheckoutData, &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (uc *CheckoutUC) SavePayment(ctx context.Context, sid string, m domain.PaymentMethod) error {
	if !m.Valid() {
		return domain.InvalidInput("método de pago inválido")
	}
	return uc.Sessions.Set(ctx, sid, sessionCheckoutPay, m)
}

// Payment defaults to cash on delivery when nothing was chosen.
func (uc *CheckoutUC) Payment(ctx context.Context, sid string) (domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	ok, err := uc.Sessions.Get(ctx, sid, sessionCheckoutPay, &m)
	if err != nil {
		return "", err
	}
	if !ok || !m.Valid() {
		return domain.PaymentCashOnDelivery, nil
	}
	return m, nil
}

func (uc *CheckoutUC) ShippingMethods(ctx context.Context) ([]domain.ShippingMethod, error) {
	return uc.Shipping.ListActive(ctx)
}

func (uc *CheckoutUC) SelectShipping(ctx context.Context, sid string, id uuid.UUID) (*domain.ShippingMethod, error) {
	m, err := uc.Shipping.FindActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m, uc.Sessions.Set(ctx, sid, sessionShippingMethod, m.ID)
}

func (uc *CheckoutUC) selectedShippingID(ctx context.Context, sid string) (*uuid.UUID, error) {
	var id uuid.UUID
	ok, err := uc.Sessions.Get(ctx, sid, sessionShippingMethod, &id)
	if err != nil || !ok || id == uuid.Nil {
		return nil, err
	}
	return &id, nil
}

// SelectedShipping ignores a stale selection that no longer resolves to an
// active method.
func (uc *CheckoutUC) SelectedShipping(ctx context.Context, sid string) (*domain.ShippingMethod, error) {
	id, err := uc.selectedShippingID(ctx, sid)
	if err != nil || id == nil {
		return nil, err
	}
	m, err := uc.Shipping.FindActiveByID(ctx, *id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (uc *CheckoutUC) Totals(ctx context.Context, sid string, c *domain.Cart) (domain.Totals, error) {
	m, err := uc.SelectedShipping(ctx, sid)
	if err != nil {
		return domain.Totals{}, err
	}
	subtotal := c.Total()
	shipping := domain.ShippingCost(subtotal, uc.FreeShippingFrom, m)
	return domain.Totals{Subtotal: subtotal, Shipping: shipping, Total: subtotal.Add(shipping), Method: m}, nil
}

func (uc *CheckoutUC) Summary(ctx context.Context, sid string) (CartSummary, error) {
	c, err := uc.Cart.Load(ctx, sid)
	if err != nil {
		return CartSummary{}, err
	}
	return CartSummary{Count: c.Count(), Total: c.Total(), Currency: uc.Currency}, nil
}

// Reset drops the transient checkout keys.
func (uc *CheckoutUC) Reset(ctx context.Context, sid string) error {
	return uc.Sessions.Delete(ctx, sid, sessionCheckoutData, sessionCheckoutPay, sessionShippingMethod)
}
