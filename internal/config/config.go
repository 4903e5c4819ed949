package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Config struct {
	Telegram struct {
		Token  string
		Admins []int64
	}
	DB     DBConfig
	Stripe struct {
		SecretKey  string
		PublicKey  string
		WebhookKey string
		PriceID    string
	}
	GPT struct {
		APIKey string
		Model  string
	}
	Quota struct {
		DailyPhotoLimit  int
		SubscriptionDays int
	}
	Chat struct {
		HistoryLimit int
	}
	Server struct {
		Port string
	}
	ShutdownTimeout time.Duration
}

// Load loads the configuration from config.yaml with environment
// variable overrides; with no config file present it falls back to
// environment variables entirely.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.dietitian-bot")

	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("GPT.Model", "gpt-4o")
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("Quota.DailyPhotoLimit", 10)
	v.SetDefault("Quota.SubscriptionDays", 31)
	v.SetDefault("Chat.HistoryLimit", 20)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No config file: build everything from the environment.
		cfg := &Config{}
		cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
		cfg.Telegram.Admins = parseAdminIDs(os.Getenv("ADMIN_IDS"))
		cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
		cfg.DB.Port = getEnvOr("DB_PORT", "5432")
		cfg.DB.User = getEnvOr("DB_USER", "postgres")
		cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
		cfg.DB.DBName = getEnvOr("DB_NAME", "dietitian_bot")
		cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
		cfg.DB.MaxOpenConns = 20
		cfg.DB.MaxIdleConns = 10
		cfg.DB.ConnLifetime = 5 * time.Minute
		cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
		cfg.Stripe.PublicKey = os.Getenv("STRIPE_PUBLIC_KEY")
		cfg.Stripe.WebhookKey = os.Getenv("STRIPE_WEBHOOK_KEY")
		cfg.Stripe.PriceID = os.Getenv("STRIPE_PRICE_ID")
		cfg.GPT.APIKey = os.Getenv("GPT_API_KEY")
		cfg.GPT.Model = getEnvOr("GPT_MODEL", "gpt-4o")
		cfg.Quota.DailyPhotoLimit = 10
		cfg.Quota.SubscriptionDays = 31
		cfg.Chat.HistoryLimit = 20
		cfg.Server.Port = getEnvOr("SERVER_PORT", "8080")
		cfg.ShutdownTimeout = 10 * time.Second
		return cfg, nil
	}

	// Resolve ${ENV_VAR} placeholders in config values.
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if extra := parseAdminIDs(os.Getenv("ADMIN_IDS")); len(extra) > 0 {
		cfg.Telegram.Admins = append(cfg.Telegram.Admins, extra...)
	}
	return &cfg, nil
}

func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
