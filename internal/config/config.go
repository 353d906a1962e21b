package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Server configures the reference storefront backend.
type Server struct {
	Port        string        `envconfig:"PORT" default:"8080"`
	DBPath      string        `envconfig:"DB_PATH" default:"data/storefront.db"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"720h"`
	BaseURL     string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	Development bool          `envconfig:"DEVELOPMENT" default:"false"`
	Mail        Mail
}

type Mail struct {
	Provider string `envconfig:"MAIL_PROVIDER" default:"console"`
	Host     string `envconfig:"SMTP_HOST"`
	Port     string `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

// Client configures the storefront client stack used by cmd/storefront.
type Client struct {
	APIBaseURL      string        `envconfig:"API_BASE_URL" required:"true"`
	StoreDSN        string        `envconfig:"STORE_DSN" default:"data/client.db"`
	SecureStorePath string        `envconfig:"SECURE_STORE_PATH" default:"data/secure.bin"`
	SecureStoreKey  string        `envconfig:"SECURE_STORE_KEY" required:"true"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"0s"`
	Platform        string        `envconfig:"PLATFORM" default:"cli"`
	PushToken       string        `envconfig:"PUSH_TOKEN"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"warn"`
}

// loadDotenv reads .env when present; a missing file is not an error.
func loadDotenv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func LoadServer() (*Server, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process server configuration: %w", err)
	}
	return &cfg, nil
}

func LoadClient() (*Client, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}
	var cfg Client
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process client configuration: %w", err)
	}
	return &cfg, nil
}
