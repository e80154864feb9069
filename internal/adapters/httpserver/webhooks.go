package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const webhookBodyLimit = 65536

// confirmPayment marks the order paid and sends the confirmation once. It
// returns false only for errors worth a provider retry.
func (s *Server) confirmPayment(r *http.Request, orderID uuid.UUID, ref string) bool {
	ctx := r.Context()
	o, changed, err := s.Orders.ConfirmCardPaymentSuccess(ctx, orderID, ref)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Ctx(ctx).Error().Str("order_id", orderID.String()).Msg("orden no encontrada para webhook")
		return true
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Ctx(ctx).Warn().Str("order_id", orderID.String()).Msg("webhook para orden en estado inválido")
		return true
	case err != nil:
		log.Ctx(ctx).Error().Err(err).Str("order_id", orderID.String()).Msg("confirmar pago")
		return false
	}
	if changed {
		s.Orders.NotifyPlaced(ctx, o)
	}
	return true
}

func (s *Server) webhookStripe(w http.ResponseWriter, r *http.Request) {
	if s.Stripe == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	evt, err := s.Stripe.ParseWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("webhook stripe rechazado")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if evt == nil || !evt.Paid {
		w.WriteHeader(http.StatusOK)
		return
	}
	if !s.confirmPayment(r, evt.OrderID, evt.Ref) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) webhookMP(w http.ResponseWriter, r *http.Request) {
	if s.MP == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("webhook mp: no se pudo leer el cuerpo")
	}
	var evt struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &evt); err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("webhook mp: cuerpo no es json, se usa ?id=")
		}
	}
	payID := evt.Data.ID
	if payID == "" {
		payID = r.URL.Query().Get("id")
	}
	if payID == "" {
		log.Ctx(ctx).Warn().Msg("webhook sin payment id")
		w.WriteHeader(http.StatusOK)
		return
	}
	status, extRef, err := s.MP.PaymentInfo(ctx, payID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("payment_id", payID).Msg("payment info")
		w.WriteHeader(http.StatusOK)
		return
	}
	orderID, ok := s.MP.VerifyExternalRef(extRef)
	if !ok {
		log.Ctx(ctx).Warn().Str("ext", extRef).Msg("external ref inválido")
		w.WriteHeader(http.StatusOK)
		return
	}
	if status != "approved" {
		log.Ctx(ctx).Info().Str("order_id", orderID.String()).Str("status", status).Msg("pago no aprobado")
		w.WriteHeader(http.StatusOK)
		return
	}
	if !s.confirmPayment(r, orderID, payID) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
