package mercadopago

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const defaultAPI = "https://api.mercadopago.com"

type Config struct {
	AccessToken string
	SecretKey   string
	SiteURL     string
	Currency    string
	Production  bool
	// APIBase overrides the MercadoPago host; empty means the public API.
	APIBase string
}

type Gateway struct {
	cfg        Config
	httpClient *http.Client
}

func NewGateway(cfg Config) *Gateway {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPI
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = "dev"
	}
	return &Gateway{cfg: cfg, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (g *Gateway) Name() string { return "mercadopago" }

type mpItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPreferenceRequest struct {
	Items             []mpItem          `json:"items"`
	Payer             map[string]string `json:"payer,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
}

type mpPrefResp struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpPaymentResp struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func (g *Gateway) signExternal(orderID string) string {
	h := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	h.Write([]byte(orderID))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// ExternalRef is "<order id>|<hmac>" so webhooks can't be forged for
// arbitrary orders.
func (g *Gateway) ExternalRef(id uuid.UUID) string {
	return id.String() + "|" + g.signExternal(id.String())
}

func (g *Gateway) VerifyExternalRef(ext string) (uuid.UUID, bool) {
	parts := strings.Split(ext, "|")
	if len(parts) != 2 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, hmac.Equal([]byte(g.signExternal(parts[0])), []byte(parts[1]))
}

func (g *Gateway) preference(o *domain.Order) mpPreferenceRequest {
	items := make([]mpItem, 0, len(o.Items)+1)
	for _, it := range o.Items {
		// MercadoPago solo acepta float; los subtotales fijados van como un renglón
		qty, price := it.Qty, it.UnitPrice
		if !it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))) {
			qty, price = 1, it.Subtotal
		}
		items = append(items, mpItem{Title: it.Title, Quantity: qty, UnitPrice: price.Round(2).InexactFloat64(), CurrencyID: g.cfg.Currency})
	}
	if o.ShippingCost.IsPositive() {
		label := "Envío"
		if o.ShippingMethod != nil {
			label = o.ShippingMethod.Name
		}
		items = append(items, mpItem{Title: label, Quantity: 1, UnitPrice: o.ShippingCost.Round(2).InexactFloat64(), CurrencyID: g.cfg.Currency})
	}

	// Con credenciales de producción MercadoPago rechaza auto_return hacia localhost
	autoReturn := "approved"
	if !strings.HasPrefix(g.cfg.AccessToken, "TEST-") && strings.Contains(g.cfg.SiteURL, "localhost") {
		autoReturn = ""
	}
	back := g.cfg.SiteURL + "/checkout/success?order=" + o.ID.String()
	return mpPreferenceRequest{
		Items: items,
		Payer: map[string]string{"email": o.Email},
		BackURLs: map[string]string{
			"success": back,
			"pending": back,
			"failure": g.cfg.SiteURL + "/checkout/cancel?order=" + o.ID.String(),
		},
		AutoReturn:        autoReturn,
		NotificationURL:   g.cfg.SiteURL + "/webhooks/mp",
		ExternalReference: g.ExternalRef(o.ID),
	}
}

// StartCheckout creates a checkout preference and returns its init point and id.
func (g *Gateway) StartCheckout(ctx context.Context, o *domain.Order) (string, string, error) {
	if g.cfg.AccessToken == "" {
		return "", "", errors.New("MP token faltante (MP_ACCESS_TOKEN)")
	}
	if o == nil {
		return "", "", errors.New("orden nil")
	}
	buf, err := json.Marshal(g.preference(o))
	if err != nil {
		return "", "", fmt.Errorf("error serializando payload MP: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIBase+"/checkout/preferences", bytes.NewReader(buf))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("error de conexión con MercadoPago: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		var mpError struct {
			Message string `json:"message"`
		}
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return "", "", fmt.Errorf("credenciales de MercadoPago inválidas o sin permisos (status %d)", res.StatusCode)
		}
		if json.Unmarshal(body, &mpError) == nil && mpError.Message != "" {
			return "", "", fmt.Errorf("error de MercadoPago (status %d): %s", res.StatusCode, mpError.Message)
		}
		return "", "", fmt.Errorf("mp pref status %d: %s", res.StatusCode, string(body))
	}
	var pref mpPrefResp
	if err := json.NewDecoder(res.Body).Decode(&pref); err != nil {
		return "", "", err
	}
	if pref.ID == "" {
		return "", "", errors.New("respuesta MP incompleta")
	}
	initPoint := pref.InitPoint
	if strings.HasPrefix(g.cfg.AccessToken, "TEST-") && !g.cfg.Production && pref.SandboxInitPoint != "" {
		initPoint = pref.SandboxInitPoint
	}
	log.Info().Str("order", o.ID.String()).Str("preference", pref.ID).Msg("preferencia MP creada")
	return initPoint, pref.ID, nil
}

// PaymentInfo returns the status and external reference of a payment.
func (g *Gateway) PaymentInfo(ctx context.Context, paymentID string) (string, string, error) {
	if g.cfg.AccessToken == "" || paymentID == "" {
		return "", "", errors.New("params")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBase+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return "", "", fmt.Errorf("mp payment status %d: %s", res.StatusCode, string(b))
	}
	var pr mpPaymentResp
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return "", "", err
	}
	return pr.Status, pr.ExternalReference, nil
}
