package app

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/tiendavirtual/internal/adapters/httpserver"
	"github.com/phenrril/tiendavirtual/internal/adapters/notify"
	"github.com/phenrril/tiendavirtual/internal/adapters/payments/mercadopago"
	"github.com/phenrril/tiendavirtual/internal/adapters/payments/stripe"
	"github.com/phenrril/tiendavirtual/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendavirtual/internal/adapters/session/memstore"
	"github.com/phenrril/tiendavirtual/internal/adapters/session/redisstore"
	"github.com/phenrril/tiendavirtual/internal/config"
	"github.com/phenrril/tiendavirtual/internal/domain"
	"github.com/phenrril/tiendavirtual/internal/usecase"
)

type App struct {
	DB     *gorm.DB
	Config *config.Config

	ProductUC   *usecase.ProductUC
	CartUC      *usecase.CartUC
	CheckoutUC  *usecase.CheckoutUC
	OrderUC     *usecase.OrderUC
	PaymentUC   *usecase.PaymentUC
	ShippingUC  *usecase.ShippingUC
	DashboardUC *usecase.DashboardUC

	Customers   domain.CustomerRepo
	Sessions    domain.SessionStore
	OAuthConfig *oauth2.Config

	shipping *postgres.ShippingMethodRepo
	stripe   *stripe.Gateway
	mp       *mercadopago.Gateway
	closers  []io.Closer
}

func NewApp(cfg *config.Config, db *gorm.DB) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	shipRepo := postgres.NewShippingMethodRepo(db)
	custRepo := postgres.NewCustomerRepo(db)

	a := &App{DB: db, Config: cfg, Customers: custRepo, shipping: shipRepo}

	if cfg.Redis.Addr != "" {
		rs, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.App.SessionTTL,
		})
		if err != nil {
			return nil, err
		}
		a.Sessions = rs
		a.closers = append(a.closers, rs)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sesiones en redis")
	} else {
		a.Sessions = memstore.New(cfg.App.SessionTTL)
		log.Warn().Msg("REDIS_ADDR vacío, sesiones en memoria")
	}

	var gateway domain.PaymentGateway
	switch cfg.Payments.Provider {
	case "stripe":
		if cfg.Payments.StripeSecretKey != "" {
			a.stripe = stripe.NewGateway(stripe.Config{
				SecretKey:     cfg.Payments.StripeSecretKey,
				WebhookSecret: cfg.Payments.StripeWebhookSecret,
				Currency:      cfg.Shop.Currency,
				SiteURL:       cfg.App.SiteURL,
			})
			gateway = a.stripe
		}
	case "mercadopago":
		if cfg.Payments.MPAccessToken != "" {
			a.mp = mercadopago.NewGateway(mercadopago.Config{
				AccessToken: cfg.Payments.MPAccessToken,
				SecretKey:   cfg.App.SecretKey,
				SiteURL:     cfg.App.SiteURL,
				Currency:    cfg.Shop.Currency,
				Production:  cfg.IsProduction(),
			})
			gateway = a.mp
		}
	}
	if gateway == nil {
		log.Warn().Str("provider", cfg.Payments.Provider).Msg("pasarela sin credenciales, pago con tarjeta deshabilitado")
	}

	var notifiers []domain.OrderNotifier
	mail := notify.NewEmail(notify.EmailConfig{
		Host:    cfg.Mail.Host,
		Port:    cfg.Mail.Port,
		User:    cfg.Mail.User,
		Pass:    cfg.Mail.Pass,
		From:    cfg.Mail.From,
		SiteURL: cfg.App.SiteURL,
	})
	if mail.Configured() {
		notifiers = append(notifiers, mail)
	}
	tg := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, cfg.App.SiteURL)
	if tg.Configured() {
		notifiers = append(notifiers, tg)
	}

	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		a.OAuthConfig = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.App.SiteURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	pricing := usecase.NewPricingCalculator()
	txm := postgres.NewTxManager(db)
	a.ProductUC = &usecase.ProductUC{Tx: txm, Products: prodRepo, Taxonomy: postgres.NewTaxonomyRepo(db)}
	a.CartUC = &usecase.CartUC{Products: prodRepo, Pricing: pricing, Sessions: a.Sessions}
	a.CheckoutUC = &usecase.CheckoutUC{
		Cart:             a.CartUC,
		Shipping:         shipRepo,
		Sessions:         a.Sessions,
		FreeShippingFrom: cfg.Shop.FreeShippingFrom,
		Currency:         cfg.Shop.Currency,
	}
	a.OrderUC = &usecase.OrderUC{
		Tx:        txm,
		Orders:    orderRepo,
		Cart:      a.CartUC,
		Checkout:  a.CheckoutUC,
		Pricing:   pricing,
		Notifiers: notifiers,
	}
	if gateway != nil {
		a.PaymentUC = &usecase.PaymentUC{Orders: orderRepo, Gateway: gateway}
	}
	a.ShippingUC = &usecase.ShippingUC{Methods: shipRepo}
	a.DashboardUC = &usecase.DashboardUC{Products: prodRepo, Orders: orderRepo}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	d := httpserver.Deps{
		Products:  a.ProductUC,
		Cart:      a.CartUC,
		Checkout:  a.CheckoutUC,
		Orders:    a.OrderUC,
		Payments:  a.PaymentUC,
		Shipping:  a.ShippingUC,
		Dashboard: a.DashboardUC,
		Customers: a.Customers,
		Sessions:  a.Sessions,
		OAuth:     a.OAuthConfig,
		Admin: httpserver.AdminConfig{
			User:   a.Config.Admin.User,
			Pass:   a.Config.Admin.Pass,
			Secret: a.Config.Admin.JWTSecret,
		},
		SiteURL:       a.Config.App.SiteURL,
		SessionTTL:    a.Config.App.SessionTTL,
		SecureCookies: a.Config.IsProduction(),
	}
	// Interfaces stay nil unless the gateway exists, so the webhook routes
	// answer 404 for the provider that is not in use.
	if a.stripe != nil {
		d.Stripe = a.stripe
	}
	if a.mp != nil {
		d.MP = a.mp
	}
	return httpserver.New(d)
}

// MigrateAndSeed creates the schema, seeds the default shipping methods and
// repairs product slugs left by older imports.
func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := postgres.Migrate(a.DB); err != nil {
		return err
	}
	if err := postgres.SeedShipping(ctx, a.shipping); err != nil {
		return err
	}
	n, err := a.ProductUC.FixSlugs(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int("products", n).Msg("slugs corregidos")
	}
	return nil
}

func (a *App) Close() error {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}
