package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the portfolio chat service.
type Config struct {
	BindAddr                 string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout          time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SessionInactivityTimeout time.Duration `env:"APP_SESSION_INACTIVITY_TIMEOUT" envDefault:"30m"`
	MetricsNamespace         string        `env:"APP_METRICS_NAMESPACE" envDefault:"folio"`
	AllowAnyOrigin           bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`
	LogLevel                 string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat                string        `env:"APP_LOG_FORMAT" envDefault:"json"`

	// Per-session submit limit, messages per second with a burst allowance.
	SubmitRate  float64 `env:"APP_SUBMIT_RATE" envDefault:"1"`
	SubmitBurst int     `env:"APP_SUBMIT_BURST" envDefault:"5"`

	ProfilePath string `env:"PROFILE_PATH"`

	GeneratorMode          string        `env:"GENERATOR_MODE" envDefault:"auto"`
	OpenAIAPIKey           string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL          string        `env:"OPENAI_BASE_URL"`
	OpenAIModel            string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeneratorHTTPURL       string        `env:"GENERATOR_HTTP_URL"`
	GatewayTimeout         time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	GeneratorMaxToolRounds int           `env:"GENERATOR_MAX_TOOL_ROUNDS" envDefault:"4"`
	GeneratorRetries       int           `env:"GENERATOR_RETRIES" envDefault:"2"`

	DatabaseURL string `env:"DATABASE_URL"`
}

// Load reads an optional .env file, then environment variables, and validates the result.
func Load() (Config, error) {
	return LoadWithDotEnv(".env")
}

// LoadWithDotEnv is Load with an explicit dotenv path. Variables already set
// in the environment win over the file.
func LoadWithDotEnv(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.BindAddr = strings.TrimSpace(c.BindAddr)
	c.ProfilePath = strings.TrimSpace(c.ProfilePath)
	c.GeneratorMode = strings.ToLower(strings.TrimSpace(c.GeneratorMode))
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.OpenAIBaseURL = strings.TrimSpace(c.OpenAIBaseURL)
	c.OpenAIModel = strings.TrimSpace(c.OpenAIModel)
	c.GeneratorHTTPURL = strings.TrimSpace(c.GeneratorHTTPURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func (c Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.GatewayTimeout <= 0 || c.GatewayTimeout > 5*time.Minute {
		return fmt.Errorf("GATEWAY_TIMEOUT must be in (0, 5m]")
	}
	if c.SubmitRate < 0 {
		return fmt.Errorf("APP_SUBMIT_RATE must be >= 0")
	}
	if c.SubmitBurst <= 0 {
		return fmt.Errorf("APP_SUBMIT_BURST must be positive")
	}
	if c.GeneratorMaxToolRounds <= 0 {
		return fmt.Errorf("GENERATOR_MAX_TOOL_ROUNDS must be positive")
	}
	if c.GeneratorRetries < 0 {
		return fmt.Errorf("GENERATOR_RETRIES must be >= 0")
	}
	switch c.GeneratorMode {
	case "auto", "openai", "http", "mock":
	default:
		return fmt.Errorf("GENERATOR_MODE must be one of auto, openai, http, mock")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be json or console")
	}
	return nil
}
