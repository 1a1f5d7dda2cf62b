package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Env string // "production" or anything else for dev

	DB struct {
		DSN string
	}
	SMS struct {
		BaseURL      string
		TokenURL     string
		ClientID     string
		ClientSecret string
		FromNumber   string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Telegram struct {
		BotToken    string
		AdminChatID int64
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Dispatch struct {
		MaxRetries     int
		BaseDelay      time.Duration
		AttemptTimeout time.Duration
		PacingDelay    time.Duration
	}
	RateLimit struct {
		RecipientLimit  int
		RecipientWindow time.Duration
		GlobalLimit     int
		GlobalWindow    time.Duration
	}
	Expiry struct {
		HorizonDays int
		CronSpec    string
	}
	Validation struct {
		DefaultCountryCode string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// IsProduction reports whether the service runs with production strictness.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.Env = os.Getenv("APP_ENV")

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// SMS gateway settings
	cfg.SMS.BaseURL = os.Getenv("SMS_BASE_URL")
	cfg.SMS.TokenURL = os.Getenv("SMS_TOKEN_URL")
	cfg.SMS.ClientID = os.Getenv("SMS_CLIENT_ID")
	cfg.SMS.ClientSecret = os.Getenv("SMS_CLIENT_SECRET")
	cfg.SMS.FromNumber = os.Getenv("SMS_FROM_NUMBER")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	// Telegram ops alerts
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_ADMIN_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.AdminChatID = id
	}

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Dispatch tunables
	cfg.Dispatch.MaxRetries = intEnv("DISPATCH_MAX_RETRIES", 3)
	cfg.Dispatch.BaseDelay = durationEnv("DISPATCH_BASE_DELAY", 2*time.Second)
	cfg.Dispatch.AttemptTimeout = durationEnv("DISPATCH_ATTEMPT_TIMEOUT", 10*time.Second)
	cfg.Dispatch.PacingDelay = durationEnv("DISPATCH_PACING_DELAY", time.Second)

	// Rate limits
	cfg.RateLimit.RecipientLimit = intEnv("RATELIMIT_RECIPIENT", 10)
	cfg.RateLimit.RecipientWindow = durationEnv("RATELIMIT_RECIPIENT_WINDOW", time.Hour)
	cfg.RateLimit.GlobalLimit = intEnv("RATELIMIT_GLOBAL", 100)
	cfg.RateLimit.GlobalWindow = durationEnv("RATELIMIT_GLOBAL_WINDOW", time.Minute)

	// Expiry scan
	cfg.Expiry.HorizonDays = intEnv("EXPIRY_HORIZON_DAYS", 3)
	cfg.Expiry.CronSpec = os.Getenv("EXPIRY_CRON_SPEC")

	cfg.Validation.DefaultCountryCode = os.Getenv("DEFAULT_COUNTRY_CODE")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings. Outside production the service can run with
	// simulated providers and no metrics store.
	if cfg.IsProduction() {
		missing := []string{}
		if cfg.DB.DSN == "" {
			missing = append(missing, "DB_DSN")
		}
		if cfg.SMS.ClientID == "" || cfg.SMS.ClientSecret == "" {
			missing = append(missing, "SMS_CLIENT_ID/SMS_CLIENT_SECRET")
		}
		if len(missing) > 0 {
			return Config{}, fmt.Errorf("missing required configurations: %v", missing)
		}
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Expiry.CronSpec == "" {
		cfg.Expiry.CronSpec = "0 9 * * *"
	}
	if cfg.Validation.DefaultCountryCode == "" {
		cfg.Validation.DefaultCountryCode = "+84"
	}
	if cfg.SMS.TokenURL == "" && cfg.SMS.BaseURL != "" {
		cfg.SMS.TokenURL = cfg.SMS.BaseURL + "/oauth/token"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}
