// Package config loads all runtime configuration from environment variables.
// A local .env file is honoured when present; no config files beyond that.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for stockpulse.
type Config struct {
	HTTP   HTTPConfig
	DB     DBConfig
	Log    LogConfig
	JWT    JWTConfig
	Mail   MailConfig
	Push   PushConfig
	Alert  AlertConfig
	App    AppConfig
	Worker WorkerConfig
	OTel   OTelConfig
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int
}

// DBConfig holds database connection configuration.
type DBConfig struct {
	Driver   string // "sqlite" (default) or "postgres"
	DSN      string // required when Driver == "postgres"
	File     string // SQLite database file path (default: "stockpulse.db")
	MaxConns int    // Postgres only
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string
	Format string
}

// JWTConfig holds JSON Web Token signing and expiry settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // intentional: holds JWT signing secret loaded from env
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// MailConfig holds the transactional-email provider settings.
type MailConfig struct {
	APIKey      string //nolint:gosec // intentional: holds mail provider API key loaded from env
	Endpoint    string
	FromAddress string
	Timeout     time.Duration
}

// PushConfig holds VAPID keys for web-push delivery.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string //nolint:gosec // intentional: holds VAPID private key loaded from env
	Subscriber      string // contact mailto/URL required by VAPID
}

// AlertConfig tunes the alert computation defaults.
type AlertConfig struct {
	DefaultThresholdPercent float64
	DefaultComparisonDays   int
	NetMode                 bool // sum signed net change instead of movement magnitudes
	ScanInterval            time.Duration
	ServiceToken            string //nolint:gosec // intentional: bearer token guarding trigger endpoints
}

// AppConfig holds application-level settings such as seed credentials.
type AppConfig struct {
	BaseURL           string
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedCompanyName   string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Concurrency int
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	OTLPEndpoint string
}

// Load reads configuration from environment variables, applies defaults,
// and returns an error if any required field is absent.
func Load() (*Config, error) {
	// Best-effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{}

	// HTTP
	cfg.HTTP.Port = envInt("HTTP_PORT", 8080)

	// DB
	cfg.DB.Driver = envStr("DB_DRIVER", "sqlite")
	cfg.DB.File = envStr("DB_FILE", "stockpulse.db")
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		return nil, errors.New("DB_DSN is required when DB_DRIVER=postgres")
	}
	cfg.DB.MaxConns = envInt("DB_MAX_CONNS", 25)

	// Log
	cfg.Log.Level = envStr("LOG_LEVEL", "info")
	cfg.Log.Format = envStr("LOG_FORMAT", "json")

	// JWT (required)
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	var err error
	cfg.JWT.AccessTTL, err = envDuration("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("JWT_ACCESS_TTL: %w", err)
	}
	cfg.JWT.RefreshTTL, err = envDuration("JWT_REFRESH_TTL", 720*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("JWT_REFRESH_TTL: %w", err)
	}

	// Mail
	cfg.Mail.APIKey = os.Getenv("MAIL_API_KEY")
	cfg.Mail.Endpoint = envStr("MAIL_API_ENDPOINT", "https://api.resend.com/emails")
	cfg.Mail.FromAddress = envStr("MAIL_FROM", "alerts@stockpulse.local")
	cfg.Mail.Timeout, err = envDuration("MAIL_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MAIL_TIMEOUT: %w", err)
	}

	// Push
	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subscriber = envStr("VAPID_SUBSCRIBER", "mailto:alerts@stockpulse.local")

	// Alert
	cfg.Alert.DefaultThresholdPercent = envFloat("ALERT_THRESHOLD_PERCENT", 20)
	cfg.Alert.DefaultComparisonDays = envInt("ALERT_COMPARISON_DAYS", 7)
	cfg.Alert.NetMode = envBool("ALERT_NET_MODE", false)
	cfg.Alert.ScanInterval, err = envDuration("ALERT_SCAN_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ALERT_SCAN_INTERVAL: %w", err)
	}
	cfg.Alert.ServiceToken = os.Getenv("ALERT_SERVICE_TOKEN")

	// App
	cfg.App.BaseURL = envStr("APP_BASE_URL", "http://localhost:8080")
	cfg.App.SeedAdminEmail = envStr("SEED_ADMIN_EMAIL", "admin@stockpulse.local")
	cfg.App.SeedAdminPassword = os.Getenv("SEED_ADMIN_PASSWORD")
	cfg.App.SeedCompanyName = envStr("SEED_COMPANY_NAME", "Demo Company")

	// Worker
	cfg.Worker.Concurrency = envInt("WORKER_CONCURRENCY", 10)

	// OTel
	cfg.OTel.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	return d, nil
}
