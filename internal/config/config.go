package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Shop     ShopConfig
	Admin    AdminConfig
	Payments PaymentsConfig
	Mail     MailConfig
	Telegram TelegramConfig
	Google   GoogleConfig
}

type AppConfig struct {
	Env        string
	Port       string
	LogLevel   string
	SiteURL    string
	SessionTTL time.Duration
	// SecretKey signs session cookies and payment external references.
	SecretKey string
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ShopConfig struct {
	FreeShippingFrom decimal.Decimal
	Currency         string
}

type AdminConfig struct {
	User      string
	Pass      string
	JWTSecret string
}

type PaymentsConfig struct {
	Provider            string
	StripeSecretKey     string
	StripeWebhookSecret string
	MPAccessToken       string
}

type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type TelegramConfig struct {
	BotToken string
	ChatIDs  []string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("site_url", "http://localhost:8080")
	v.SetDefault("session_ttl", "336h")
	v.SetDefault("secret_key", "dev")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "tiendavirtual")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("redis_db", 0)
	v.SetDefault("free_shipping_from", "50.00")
	v.SetDefault("currency", "EUR")
	v.SetDefault("payment_provider", "stripe")
	v.SetDefault("smtp_port", 587)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	free, err := decimal.NewFromString(strings.TrimSpace(v.GetString("free_shipping_from")))
	if err != nil {
		return nil, fmt.Errorf("FREE_SHIPPING_FROM inválido: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:        strings.ToLower(v.GetString("app_env")),
			Port:       v.GetString("port"),
			LogLevel:   v.GetString("log_level"),
			SiteURL:    strings.TrimRight(v.GetString("site_url"), "/"),
			SessionTTL: v.GetDuration("session_ttl"),
			SecretKey:  v.GetString("secret_key"),
		},
		Database: DatabaseConfig{
			DSN:      v.GetString("db_dsn"),
			Host:     v.GetString("db_host"),
			Port:     v.GetInt("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Shop: ShopConfig{
			FreeShippingFrom: free,
			Currency:         strings.ToUpper(v.GetString("currency")),
		},
		Admin: AdminConfig{
			User:      v.GetString("admin_user"),
			Pass:      v.GetString("admin_pass"),
			JWTSecret: v.GetString("jwt_admin_secret"),
		},
		Payments: PaymentsConfig{
			Provider:            strings.ToLower(v.GetString("payment_provider")),
			StripeSecretKey:     v.GetString("stripe_secret_key"),
			StripeWebhookSecret: v.GetString("stripe_webhook_secret"),
			MPAccessToken:       v.GetString("mp_access_token"),
		},
		Mail: MailConfig{
			Host: v.GetString("smtp_host"),
			Port: v.GetInt("smtp_port"),
			User: v.GetString("smtp_user"),
			Pass: v.GetString("smtp_pass"),
			From: v.GetString("smtp_from"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("telegram_bot_token"),
			ChatIDs:  splitList(v.GetString("telegram_chat_ids")),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("google_client_id"),
			ClientSecret: v.GetString("google_client_secret"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production" || c.App.Env == "prod"
}

func (c *Config) Validate() error {
	if c.Shop.FreeShippingFrom.IsNegative() {
		return errors.New("FREE_SHIPPING_FROM no puede ser negativo")
	}
	if len(c.Shop.Currency) != 3 {
		return fmt.Errorf("CURRENCY inválida: %q", c.Shop.Currency)
	}
	switch c.Payments.Provider {
	case "stripe", "mercadopago", "":
	default:
		return fmt.Errorf("PAYMENT_PROVIDER desconocido: %q", c.Payments.Provider)
	}
	if c.IsProduction() {
		if c.App.SecretKey == "" || c.App.SecretKey == "dev" {
			return errors.New("SECRET_KEY es obligatoria en producción")
		}
		if c.Admin.JWTSecret == "" {
			return errors.New("JWT_ADMIN_SECRET es obligatoria en producción")
		}
		if c.Payments.Provider == "stripe" && c.Payments.StripeWebhookSecret == "" {
			return errors.New("STRIPE_WEBHOOK_SECRET es obligatoria en producción")
		}
	}
	return nil
}

// PostgresDSN prefers DB_DSN and otherwise assembles one from the DB_* parts.
func (d DatabaseConfig) PostgresDSN() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}
