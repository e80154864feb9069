package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type PaymentUC struct {
	Orders  domain.OrderRepo
	Gateway domain.PaymentGateway
}

// StartCardCheckout opens a hosted checkout for an initiated order and keeps
// the provider reference on the order for the webhook.
func (uc *PaymentUC) StartCardCheckout(ctx context.Context, o *domain.Order) (string, error) {
	if uc.Gateway == nil {
		return "", errors.New("pasarela de pago no configurada")
	}
	if o.PaymentStatus != domain.PaymentInitiated {
		return "", domain.ErrInvalidTransition
	}
	url, ref, err := uc.Gateway.StartCheckout(ctx, o)
	if err != nil {
		log.Error().Err(err).Str("order_id", o.ID.String()).Str("gateway", uc.Gateway.Name()).Msg("crear checkout")
		return "", err
	}
	if ref != "" {
		if err := uc.Orders.SetPaymentRef(ctx, o.ID, ref); err != nil {
			return "", err
		}
		o.PaymentRef = ref
	}
	return url, nil
}
