package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	App     AppConfig
	Auth    AuthConfig
	DB      DBConfig
	Model   ModelConfig
	Pricing PricingConfig
	LogSink LogSinkConfig
}

type AppConfig struct {
	Env          string `envconfig:"PARTQUOTE_APP_ENV" default:"dev"`
	Port         string `envconfig:"PARTQUOTE_PORT" default:"8080"`
	LogLevel     string `envconfig:"PARTQUOTE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PARTQUOTE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PARTQUOTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type AuthConfig struct {
	AdminEmail    string `envconfig:"PARTQUOTE_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"PARTQUOTE_ADMIN_PASSWORD"`
	SessionSecret string `envconfig:"PARTQUOTE_SESSION_SECRET"`
}

type DBConfig struct {
	Path string `envconfig:"PARTQUOTE_DB_PATH" default:"./dev.db"`
	// MigrationsDir empty means the migrations embedded in the binary.
	MigrationsDir string `envconfig:"PARTQUOTE_MIGRATIONS_DIR"`
}

type ModelConfig struct {
	Manifest string        `envconfig:"PARTQUOTE_MODEL_MANIFEST" default:"model.yaml"`
	URL      string        `envconfig:"PARTQUOTE_MODEL_URL"`
	Timeout  time.Duration `envconfig:"PARTQUOTE_MODEL_TIMEOUT" default:"10s"`
}

// PricingConfig overrides the manifest. Empty values keep the manifest's.
type PricingConfig struct {
	Aggregate string `envconfig:"PARTQUOTE_AGGREGATE"`
	Fallback  string `envconfig:"PARTQUOTE_FALLBACK"`
	Decimals  int    `envconfig:"PARTQUOTE_PRICE_DECIMALS" default:"2"`
}

type LogSinkConfig struct {
	URL     string `envconfig:"PARTQUOTE_LOG_SINK_URL"`
	Retries uint64 `envconfig:"PARTQUOTE_LOG_SINK_RETRIES" default:"3"`
}

// Load reads a local .env file when present, then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.App.IsDev() && !c.App.IsProd() {
		return fmt.Errorf("%s must be %q or %q, got %q", EnvAppEnv, AppEnvDev, AppEnvProd, c.App.Env)
	}
	if c.App.IsProd() && strings.TrimSpace(c.Auth.SessionSecret) == "" {
		return fmt.Errorf("%s is required in %s", EnvSessionSecret, AppEnvProd)
	}
	if c.Pricing.Decimals < 0 || c.Pricing.Decimals > 6 {
		return fmt.Errorf("%s must be within [0,6], got %d", EnvPriceDecimals, c.Pricing.Decimals)
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvModelTimeout)
	}
	return nil
}

// Warnings lists settings that are allowed but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	if c.Auth.AdminEmail == "" {
		out = append(out, EnvAdminEmail+" is not set")
	}
	if c.Auth.AdminPassword == "" {
		out = append(out, EnvAdminPassword+" is not set")
	}
	if c.Auth.SessionSecret == "" {
		out = append(out, EnvSessionSecret+" is not set")
	}
	return out
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}
