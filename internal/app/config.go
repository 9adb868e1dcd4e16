package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (BASKET_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (BASKET_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Razorpay     RazorpayConfig
	Kafka        KafkaConfig
	SMTP         SMTPConfig
	WhatsApp     WhatsAppConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// RazorpayConfig holds the payment gateway API key pair.
type RazorpayConfig struct {
	KeyID     string `usage:"Razorpay API key id" flag:"razorpay-key-id"`
	KeySecret string `usage:"Razorpay API key secret" flag:"razorpay-key-secret"`
}

// KafkaConfig controls order event publishing and consumption. An empty
// broker list disables Kafka entirely.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses; empty disables events"`
	GroupID string   `default:"notify-worker" usage:"Consumer group for the notification worker" flag:"kafka-group-id"`
}

// SMTPConfig holds the mail relay settings for order confirmations.
type SMTPConfig struct {
	Host     string `usage:"SMTP relay host; empty disables email"`
	Port     int    `default:"587" usage:"SMTP relay port"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
	From     string `usage:"From address for order confirmations"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials. An empty access token
// disables WhatsApp notifications.
type WhatsAppConfig struct {
	PhoneNumberID string `usage:"WhatsApp business phone number id" flag:"whatsapp-phone-number-id"`
	AccessToken   string `usage:"WhatsApp Cloud API access token" flag:"whatsapp-access-token"`
}

// RateLimitConfig controls the per-client rate limiter on public endpoints.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BASKET",
		Files:     []string{"config.yaml", "/etc/basket/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BASKET_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BASKET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
