package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts every new order to the shop's chats.
type Telegram struct {
	token   string
	chatIDs []string
	siteURL string
	apiBase string
	client  *http.Client
}

func NewTelegram(token string, chatIDs []string, siteURL string) *Telegram {
	return &Telegram{token: token, chatIDs: chatIDs, siteURL: siteURL, apiBase: telegramAPI, client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *Telegram) Configured() bool { return t.token != "" && len(t.chatIDs) > 0 }

func (t *Telegram) OrderPlaced(ctx context.Context, o *domain.Order) error {
	if !t.Configured() {
		return fmt.Errorf("telegram vars faltantes")
	}
	apiURL := t.apiBase + "/bot" + t.token + "/sendMessage"
	text := Summary(o, TrackingURL(t.siteURL, o))
	var lastErr error
	for _, id := range t.chatIDs {
		form := url.Values{}
		form.Set("chat_id", id)
		form.Set("text", text)
		form.Set("disable_web_page_preview", "1")
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			lastErr = fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(body))
		}
		resp.Body.Close()
	}
	return lastErr
}
