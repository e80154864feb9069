package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const metadataOrderID = "order_id"

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SiteURL       string
}

type Gateway struct {
	cfg Config
}

func NewGateway(cfg Config) *Gateway {
	stripeapi.Key = cfg.SecretKey
	return &Gateway{cfg: cfg}
}

func (g *Gateway) Name() string { return "stripe" }

// ToCents converts an amount in currency units to the integer minor units
// stripe expects.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (g *Gateway) lineItems(o *domain.Order) []*stripeapi.CheckoutSessionLineItemParams {
	currency := strings.ToLower(g.cfg.Currency)
	items := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(o.Items)+1)
	add := func(name string, amount decimal.Decimal, qty int64) {
		items = append(items, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(currency),
				UnitAmount: stripeapi.Int64(ToCents(amount)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(name),
				},
			},
			Quantity: stripeapi.Int64(qty),
		})
	}
	for _, it := range o.Items {
		// Una línea con subtotal fijado no siempre es unitario*cantidad;
		// se cobra como un único renglón.
		if it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))) {
			add(it.Title, it.UnitPrice, int64(it.Qty))
		} else {
			add(fmt.Sprintf("%s x%d", it.Title, it.Qty), it.Subtotal, 1)
		}
	}
	if o.ShippingCost.IsPositive() {
		label := "Envío"
		if o.ShippingMethod != nil {
			label = o.ShippingMethod.Name
		}
		add(label, o.ShippingCost, 1)
	}
	return items
}

func (g *Gateway) StartCheckout(ctx context.Context, o *domain.Order) (string, string, error) {
	if g.cfg.SecretKey == "" {
		return "", "", errors.New("stripe sin configurar (STRIPE_SECRET_KEY)")
	}
	if o == nil || len(o.Items) == 0 {
		return "", "", errors.New("orden vacía")
	}
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems:         g.lineItems(o),
		CustomerEmail:     stripeapi.String(o.Email),
		ClientReferenceID: stripeapi.String(o.ID.String()),
		SuccessURL:        stripeapi.String(g.cfg.SiteURL + "/checkout/success?order=" + o.ID.String()),
		CancelURL:         stripeapi.String(g.cfg.SiteURL + "/checkout/cancel?order=" + o.ID.String()),
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, o.ID.String())

	s, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("creando sesión de stripe: %w", err)
	}
	log.Info().Str("order", o.ID.String()).Str("session", s.ID).Msg("checkout stripe iniciado")
	return s.URL, s.ID, nil
}

// PaymentEvent is the part of a webhook the order flow cares about.
type PaymentEvent struct {
	OrderID uuid.UUID
	Ref     string
	Paid    bool
}

// ParseWebhook verifies the signature and extracts the order of a completed
// checkout session. Other event types yield a nil event and no error.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("firma de webhook inválida: %w", err)
	}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		log.Debug().Str("type", string(event.Type)).Msg("evento stripe ignorado")
		return nil, nil
	}
	var s stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("evento stripe ilegible: %w", err)
	}
	return sessionEvent(&s)
}

func sessionEvent(s *stripeapi.CheckoutSession) (*PaymentEvent, error) {
	raw := s.Metadata[metadataOrderID]
	if raw == "" {
		raw = s.ClientReferenceID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("sesión stripe sin orden: %w", err)
	}
	return &PaymentEvent{
		OrderID: id,
		Ref:     s.ID,
		Paid:    s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid,
	}, nil
}
