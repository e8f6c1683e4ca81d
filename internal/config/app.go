package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds everything except the database DSN.
type AppConfig struct {
	Environment string
	LogLevel    string
	ServerPort  string

	JWTSecret   string
	JWTExpHours int64

	InitialAdminEmail string

	Redis RedisConfig
	SMTP  SMTPConfig
	OTP   OTPConfig

	NotifyWorkers int
	OTPPurgeCron  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string // "ssl", "tls"/"starttls" or empty
}

type OTPConfig struct {
	Length         int
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

// LoadAppConfig reads the application configuration from environment variables.
// Call godotenv.Load before this if a .env file should be honoured.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Environment:       strings.ToLower(envOr("APP_ENV", "development")),
		LogLevel:          strings.ToLower(envOr("LOG_LEVEL", "info")),
		ServerPort:        envOr("SERVER_PORT", "8080"),
		InitialAdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("INITIAL_ADMIN_EMAIL"))),
		OTPPurgeCron:      envOr("OTP_PURGE_CRON", "@hourly"),
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET_KEY")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	var err error
	if cfg.JWTExpHours, err = envInt64("JWT_EXPIRATION_HOURS", 24); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = envOr("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	if cfg.SMTP.Port, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("SMTP_FROM")
	cfg.SMTP.Encryption = envOr("SMTP_ENCRYPTION", "tls")

	if cfg.OTP.Length, err = envInt("OTP_LENGTH", 6); err != nil {
		return nil, err
	}
	if cfg.OTP.Length < 4 || cfg.OTP.Length > 10 {
		return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", cfg.OTP.Length)
	}
	ttlMinutes, err := envInt("OTP_TTL_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("OTP_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}
	cfg.OTP.TTL = time.Duration(ttlMinutes) * time.Minute
	if cfg.OTP.MaxAttempts, err = envInt("OTP_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	cooldown, err := envInt("OTP_RESEND_COOLDOWN_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.OTP.ResendCooldown = time.Duration(cooldown) * time.Second

	if cfg.NotifyWorkers, err = envInt("NOTIFY_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.NotifyWorkers < 1 {
		cfg.NotifyWorkers = 1
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
