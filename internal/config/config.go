package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Stripe   StripeConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	SMS      SMSConfig
	Site     SiteConfig
	Scanner  ScannerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderFulfilled string
	ItemScanned    string
	ItemRefunded   string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string
}

// SMSConfig carries Twilio credentials. SMS is disabled when AccountSID is
// empty; Validate treats the whole section as optional.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type SiteConfig struct {
	BaseURL  string
	FontPath string
}

type ScannerConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderFulfilled: getEnv("KAFKA_TOPIC_FULFILLED", "gatepass.order.fulfilled"),
				ItemScanned:    getEnv("KAFKA_TOPIC_SCANNED", "gatepass.item.scanned"),
				ItemRefunded:   getEnv("KAFKA_TOPIC_REFUNDED", "gatepass.item.refunded"),
			},
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("EMAIL_FROM", ""),
			FromName:     getEnv("EMAIL_FROM_NAME", "Gatepass Tickets"),
		},
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Site: SiteConfig{
			BaseURL:  strings.TrimRight(getEnv("SITE_BASE_URL", ""), "/"),
			FontPath: getEnv("PDF_FONT_PATH", "./fonts/DejaVuSans.ttf"),
		},
		Scanner: ScannerConfig{
			JWTSecret: getEnv("SCANNER_JWT_SECRET", ""),
			TokenTTL:  time.Duration(getEnvInt("SCANNER_TOKEN_TTL_HOURS", 12)) * time.Hour,
		},
	}
}

// Validate reports every missing required setting at once so a bad deploy
// fails on the first boot line instead of at the first webhook.
func (c *Config) Validate() error {
	var missing []string

	required := map[string]string{
		"STRIPE_SECRET_KEY":     c.Stripe.SecretKey,
		"STRIPE_WEBHOOK_SECRET": c.Stripe.WebhookSecret,
		"POSTGRES_DSN":          c.Database.DSN,
		"REDIS_ADDR":            c.Redis.Addr,
		"SMTP_HOST":             c.Email.SMTPHost,
		"SMTP_USERNAME":         c.Email.SMTPUsername,
		"SMTP_PASSWORD":         c.Email.SMTPPassword,
		"SITE_BASE_URL":         c.Site.BaseURL,
		"SCANNER_JWT_SECRET":    c.Scanner.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.SMS.AccountSID != "" && (c.SMS.AuthToken == "" || c.SMS.FromNumber == "") {
		return fmt.Errorf("TWILIO_ACCOUNT_SID is set but TWILIO_AUTH_TOKEN or TWILIO_FROM_NUMBER is missing")
	}

	return nil
}

// SMSEnabled reports whether Twilio credentials were provided.
func (c *Config) SMSEnabled() bool {
	return c.SMS.AccountSID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
