package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read once from the environment at startup.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	Env     string `env:"ENV"`
	GinMode string `env:"GIN_MODE"`

	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	APIKey        string        `env:"API_KEY"`
	GeminiBaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	TextModel     string        `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-2.5-pro"`
	ImageModel    string        `env:"GEMINI_IMAGE_MODEL" envDefault:"imagen-4.0-generate-001"`
	GeminiTimeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"2m"`

	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"2h"`
	CookieMaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"2h"`
	StaticCacheAge time.Duration `env:"STATIC_CACHE_AGE" envDefault:"5m"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	SessionDir     string        `env:"SESSION_DIR" envDefault:"data/sessions"`

	LogFile      string `env:"LOG_FILE"`
	OtelEnabled  bool   `env:"OTEL_ENABLED"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	if c.SessionTimeout <= 0 {
		return errors.New("SESSION_TIMEOUT must be positive")
	}
	if c.SessionDir == "" {
		return errors.New("SESSION_DIR must not be empty")
	}
	return nil
}

// credential returns the Gemini API key, preferring GEMINI_API_KEY.
func (c Config) credential() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

func (c Config) isProduction() bool {
	return c.GinMode == "release" || c.Env == "production"
}

func (c Config) envName() string {
	return map[bool]string{true: "production", false: "development"}[c.isProduction()]
}
