package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type OrderUC struct {
	Tx        domain.TxManager
	Orders    domain.OrderRepo
	Cart      *CartUC
	Checkout  *CheckoutUC
	Pricing   *PricingCalculator
	Notifiers []domain.OrderNotifier
}

// CreateFromCart places a cash-on-delivery order. Stock is validated and
// decremented in the same transaction that writes the order, and the cart
// plus checkout state are cleared once it commits. Card payments must go
// through CreatePendingCardOrder.
func (uc *OrderUC) CreateFromCart(ctx context.Context, sid string, d domain.CheckoutData) (*domain.Order, error) {
	switch d.PaymentMethod {
	case "":
		d.PaymentMethod = domain.PaymentCashOnDelivery
	case domain.PaymentCashOnDelivery:
	default:
		return nil, domain.InvalidInput("el pago con tarjeta se confirma con el proveedor de pagos")
	}
	o, err := uc.place(ctx, sid, d, true)
	if err != nil {
		return nil, err
	}
	if err := uc.Cart.Discard(ctx, sid); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("no se pudo vaciar el carrito")
	}
	if err := uc.Checkout.Reset(ctx, sid); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("no se pudo limpiar el checkout")
	}
	return o, nil
}

// CreatePendingCardOrder writes an initiated card order without touching
// stock; ConfirmCardPaymentSuccess decrements it later.
func (uc *OrderUC) CreatePendingCardOrder(ctx context.Context, sid string, d domain.CheckoutData) (*domain.Order, error) {
	d.PaymentMethod = domain.PaymentCard
	return uc.place(ctx, sid, d, false)
}

func (uc *OrderUC) place(ctx context.Context, sid string, d domain.CheckoutData, reserve bool) (*domain.Order, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	c, err := uc.Cart.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	shipID, err := uc.Checkout.selectedShippingID(ctx, sid)
	if err != nil {
		return nil, err
	}
	token, err := domain.NewTrackingToken()
	if err != nil {
		return nil, err
	}

	status := domain.PaymentPending
	if d.PaymentMethod == domain.PaymentCard {
		status = domain.PaymentInitiated
	}
	o := &domain.Order{
		ID:            uuid.New(),
		TrackingToken: token,
		CustomerID:    d.CustomerID,
		Email:         d.Email,
		Name:          d.Name,
		Phone:         d.Phone,
		Address:       d.Address,
		City:          d.City,
		PostalCode:    d.PostalCode,
		PaymentMethod: d.PaymentMethod,
		PaymentStatus: status,
	}

	err = uc.Tx.WithinTx(ctx, func(r domain.TxRepos) error {
		if err := r.Orders.Create(ctx, o); err != nil {
			return err
		}
		subtotal := decimal.Zero
		for _, key := range c.Keys() {
			it, err := uc.placeLine(ctx, r, o.ID, key, c.Lines[key], reserve)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(it.Subtotal)
			o.Items = append(o.Items, *it)
		}

		var method *domain.ShippingMethod
		if shipID != nil {
			m, err := r.Shipping.FindActiveByID(ctx, *shipID)
			switch {
			case err == nil:
				method = m
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		shipping := domain.ShippingCost(subtotal, uc.Checkout.FreeShippingFrom, method)
		if method != nil {
			o.ShippingMethodID = &method.ID
			o.ShippingMethod = method
		}
		o.Subtotal = subtotal.Round(2)
		o.ShippingCost = shipping.Round(2)
		o.Total = subtotal.Add(shipping).Round(2)
		return r.Orders.UpdateTotals(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", o.ID.String()).Str("payment", string(o.PaymentMethod)).Str("total", o.Total.StringFixed(2)).Msg("pedido creado")
	return o, nil
}

func (uc *OrderUC) placeLine(ctx context.Context, r domain.TxRepos, orderID uuid.UUID, key string, line domain.CartLine, reserve bool) (*domain.OrderItem, error) {
	if line.Qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	pid, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("producto %q: %w", key, domain.ErrNotFound)
	}
	p, err := r.Products.LockByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("producto %s: %w", key, err)
	}
	v, err := findVariant(ctx, r.Products, p.ID, line.Meta)
	if err != nil {
		return nil, fmt.Errorf("variante de %s: %w", p.Name, err)
	}
	title := p.Name
	if v != nil {
		if reserve {
			if v, err = r.Products.LockVariant(ctx, v.ID); err != nil {
				return nil, err
			}
		}
		title = fmt.Sprintf("%s (%s)", p.Name, v.Label())
	}

	if reserve {
		available := p.Stock
		if v != nil {
			available = v.Stock
		}
		if line.Qty > available {
			return nil, &domain.StockError{Title: title, Requested: line.Qty, Available: available}
		}
	}

	unit := uc.Pricing.Price(p, v, line.Meta)
	if line.PriceOverride != nil {
		unit = *line.PriceOverride
	}
	it := &domain.OrderItem{
		ID:              uuid.New(),
		OrderID:         orderID,
		ProductID:       p.ID,
		Title:           title,
		UnitPrice:       unit.Round(2),
		Qty:             line.Qty,
		Personalization: line.Meta,
	}
	if v != nil {
		it.VariantID = &v.ID
	}
	if line.SubtotalOverride != nil {
		it.Subtotal = line.SubtotalOverride.Round(2)
	} else {
		it.Subtotal = unit.Mul(decimal.NewFromInt(int64(line.Qty))).Round(2)
	}
	it.FillSubtotal()

	if reserve {
		if v != nil {
			err = r.Products.DecrementVariantStock(ctx, v.ID, line.Qty)
		} else {
			err = r.Products.DecrementStock(ctx, p.ID, line.Qty)
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, &domain.StockError{Title: title, Requested: line.Qty}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := r.Orders.AddItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// ConfirmCardPaymentSuccess decrements stock for every line and marks the
// order paid. Calling it again for a paid order changes nothing; the bool
// reports whether this call did the transition.
func (uc *OrderUC) ConfirmCardPaymentSuccess(ctx context.Context, orderID uuid.UUID, paymentRef string) (*domain.Order, bool, error) {
	changed := false
	err := uc.Tx.WithinTx(ctx, func(r domain.TxRepos) error {
		o, err := r.Orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		// cash orders already took their stock when they were placed
		if o.PaymentMethod != domain.PaymentCard || !o.PaymentStatus.CanTransitionTo(domain.PaymentPaid) {
			return domain.ErrInvalidTransition
		}
		for _, it := range o.Items {
			if it.VariantID != nil {
				err = r.Products.DecrementVariantStockClamped(ctx, *it.VariantID, it.Qty)
			} else {
				err = r.Products.DecrementStockClamped(ctx, it.ProductID, it.Qty)
			}
			if err != nil {
				return err
			}
		}
		if paymentRef == "" {
			paymentRef = o.PaymentRef
		}
		if err := r.Orders.UpdatePayment(ctx, o.ID, domain.PaymentPaid, paymentRef); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, changed, err
	}
	if changed {
		log.Info().Str("order_id", orderID.String()).Str("ref", paymentRef).Msg("pago con tarjeta confirmado")
	}
	return o, changed, nil
}

// MarkPaid is the back-office transition. Cash orders already hold their
// stock; card orders go through the confirmation path.
func (uc *OrderUC) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch o.PaymentStatus {
	case domain.PaymentPaid:
		return o, nil
	case domain.PaymentInitiated:
		o, _, err = uc.ConfirmCardPaymentSuccess(ctx, orderID, "")
		return o, err
	}
	if !o.PaymentStatus.CanTransitionTo(domain.PaymentPaid) {
		return nil, domain.ErrInvalidTransition
	}
	if err := uc.Orders.UpdatePayment(ctx, o.ID, domain.PaymentPaid, o.PaymentRef); err != nil {
		return nil, err
	}
	o.PaymentStatus = domain.PaymentPaid
	return o, nil
}

// NotifyPlaced sends the confirmation at most once per order. Failures are
// logged and never returned.
func (uc *OrderUC) NotifyPlaced(ctx context.Context, o *domain.Order) {
	if o == nil || len(uc.Notifiers) == 0 {
		return
	}
	first, err := uc.Orders.MarkNotified(ctx, o.ID)
	if err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("no se pudo marcar la notificación")
		return
	}
	if !first {
		return
	}
	for _, n := range uc.Notifiers {
		if err := n.OrderPlaced(ctx, o); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("notificación de pedido falló")
		}
	}
}

func (uc *OrderUC) Track(ctx context.Context, token string) (*domain.Order, error) {
	if len(token) != domain.TrackingTokenLen {
		return nil, domain.ErrNotFound
	}
	return uc.Orders.FindByTrackingToken(ctx, token)
}

func (uc *OrderUC) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return uc.Orders.FindByID(ctx, id)
}

// GetForCustomer hides orders owned by someone else behind ErrNotFound.
func (uc *OrderUC) GetForCustomer(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID == nil || *o.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (uc *OrderUC) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Order, error) {
	return uc.Orders.ListByCustomer(ctx, customerID)
}

func (uc *OrderUC) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	return uc.Orders.List(ctx, f)
}
