package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	VerifyToken string `envconfig:"VERIFY_TOKEN"`

	// Messaging bridge (whatsapp-web.js sidecar)
	BridgeURL   string `envconfig:"BRIDGE_URL" required:"true"`
	BridgeToken string `envconfig:"BRIDGE_TOKEN"`

	// PayHero payment gateway
	GatewayURL       string `envconfig:"PAYHERO_URL" default:"https://backend.payhero.co.ke/api/v2"`
	GatewayAuth      string `envconfig:"PAYHERO_AUTH" required:"true"`
	CallbackURL      string `envconfig:"PAYHERO_CALLBACK_URL"`
	ChannelID        int    `envconfig:"PAYHERO_CHANNEL_ID" default:"911"`
	Provider         string `envconfig:"PAYHERO_PROVIDER" default:"m-pesa"`
	BusinessName     string `envconfig:"BUSINESS_NAME" default:"Deposit Desk"`
	AccountReference string `envconfig:"PAYHERO_ACCOUNT_REF" default:"deposit"`

	// The super-operator; also the privileged notification channel.
	AdminNumber string `envconfig:"ADMIN_NUMBER" required:"true"`

	// Delays for the deposit status resolution cycle.
	ReminderDelay   time.Duration `envconfig:"REMINDER_DELAY" default:"25s"`
	ResolutionDelay time.Duration `envconfig:"RESOLUTION_DELAY" default:"60s"`

	// Message history database
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"./deposit-bot.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Optional webhook dedupe cache
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	DedupTTL      time.Duration `envconfig:"DEDUP_TTL" default:"10m"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if cfg.ResolutionDelay <= cfg.ReminderDelay {
		return nil, fmt.Errorf("RESOLUTION_DELAY (%s) must be greater than REMINDER_DELAY (%s)",
			cfg.ResolutionDelay, cfg.ReminderDelay)
	}

	return &cfg, nil
}
