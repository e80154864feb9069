package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type EmailConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	SiteURL string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends the order confirmation to the customer.
type Email struct {
	cfg    EmailConfig
	dialer sender
}

func NewEmail(cfg EmailConfig) *Email {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Email{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)}
}

func (e *Email) Configured() bool { return e.cfg.Host != "" && e.cfg.User != "" }

func (e *Email) message(o *domain.Order) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", o.Email)
	ref := o.TrackingToken
	if len(ref) > 8 {
		ref = ref[:8]
	}
	m.SetHeader("Subject", "Tu pedido "+ref)
	m.SetBody("text/plain", "Hola "+o.Name+", gracias por tu compra.\n\n"+Summary(o, TrackingURL(e.cfg.SiteURL, o)))
	return m
}

func (e *Email) OrderPlaced(_ context.Context, o *domain.Order) error {
	if !e.Configured() {
		log.Warn().Msg("SMTP no configurado, se omite envío de email")
		return nil
	}
	if o.Email == "" {
		return errors.New("orden sin email")
	}
	if err := e.dialer.DialAndSend(e.message(o)); err != nil {
		return err
	}
	log.Info().Str("order", o.ID.String()).Msg("email de pedido enviado")
	return nil
}
