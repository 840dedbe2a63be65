package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Providers map[model.PaymentProvider]GatewayConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AdminToken   string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// GatewayConfig holds per-provider gateway credentials.
type GatewayConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AdminToken:   getEnv("ADMIN_TOKEN", ""),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "furaha"),
			Password: getEnv("DB_PASSWORD", "furaha"),
			Name:     getEnv("DB_NAME", "furaha"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Providers: make(map[model.PaymentProvider]GatewayConfig),
	}

	for _, p := range []model.PaymentProvider{
		model.PaymentProviderVodacom,
		model.PaymentProviderPawaPay,
		model.PaymentProviderPesapal,
		model.PaymentProviderPayPal,
		model.PaymentProviderPaystack,
		model.PaymentProviderFlutterwave,
	} {
		prefix := "PROVIDER_" + strings.ToUpper(string(p)) + "_"
		cfg.Providers[p] = GatewayConfig{
			BaseURL:   getEnv(prefix+"URL", ""),
			APIKey:    getEnv(prefix+"API_KEY", ""),
			SecretKey: getEnv(prefix+"SECRET", ""),
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Workflow tuning
const (
	// Confirmation polling
	PollWorkerInterval  = 5 * time.Second
	PollJitter          = 2 * time.Second
	MaxPollAttempts     = 60
	ConfirmationTimeout = 10 * time.Minute

	// Router push
	PushRetryLimit   = 3
	PushRetryBackoff = 2 * time.Second

	// Background loops
	ReconcileInterval   = 30 * time.Second
	HealthCheckInterval = 15 * time.Second
	PingTimeout         = 5 * time.Second
)
