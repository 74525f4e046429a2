package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App     AppConfig
	Server  ServerConfig
	BaaS    BaaSConfig
	Webhook WebhookConfig
	Log     LogConfig
	Tracing TracingConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
	// SecretKey seals flash/session state; carried from the original
	// deployment surface even though the JSON API does not use cookies yet.
	SecretKey string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaaSConfig describes the upstream Blockchain-as-a-Service platform.
type BaaSConfig struct {
	BaseURL string
	APIKey  string
	// AuthStyle selects where the credential travels: "header" sends
	// X-API-Key, "query" appends ?apiKey=.
	AuthStyle      string
	RequestTimeout time.Duration
	SchemaName     string
}

// WebhookConfig describes the callback the BaaS platform POSTs to.
type WebhookConfig struct {
	// CallbackURL is the externally reachable URL registered with the
	// platform; informational only, the handler listens on CallbackPath.
	CallbackURL  string
	CallbackPath string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	OTLPURL     string
	SampleRate  float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "rxanchor-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
			SecretKey:   getEnv("APP_SECRET_KEY", ""),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		BaaS: BaaSConfig{
			BaseURL:        getEnv("BLOCKAPI_BASE_URL", "https://blockapi.co.za/api/v1"),
			APIKey:         getEnv("BLOCKAPI_API_KEY", ""),
			AuthStyle:      getEnv("BLOCKAPI_AUTH_STYLE", "header"),
			RequestTimeout: getEnvDuration("BLOCKAPI_TIMEOUT", 30*time.Second),
			SchemaName:     getEnv("BLOCKAPI_SCHEMA_NAME", "prescriptionRegistry"),
		},
		Webhook: WebhookConfig{
			CallbackURL:  getEnv("WEBHOOK_URL", ""),
			CallbackPath: getEnv("WEBHOOK_PATH", "/webhook/prescription-notification"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "rxanchor-api"),
			OTLPURL:     getEnv("OTLP_ENDPOINT", "localhost:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces deployment requirements before the process serves traffic.
func validate(cfg *Config) error {
	var errs []string

	if cfg.BaaS.APIKey == "" && cfg.App.Environment != "development" {
		errs = append(errs, "BLOCKAPI_API_KEY is required in non-development environments")
	}

	if cfg.BaaS.AuthStyle != "header" && cfg.BaaS.AuthStyle != "query" {
		errs = append(errs, "BLOCKAPI_AUTH_STYLE must be \"header\" or \"query\"")
	}

	if cfg.App.SecretKey != "" && len(cfg.App.SecretKey) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "APP_SECRET_KEY must be at least 32 characters in production")
	}

	if !strings.HasPrefix(cfg.BaaS.BaseURL, "http://") && !strings.HasPrefix(cfg.BaaS.BaseURL, "https://") {
		errs = append(errs, "BLOCKAPI_BASE_URL must be an http(s) URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
