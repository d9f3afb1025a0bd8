package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Registry RegistryConfig
	Audit    AuditConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// JWTConfig holds token verification settings
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// RegistryConfig holds the national company registry client settings
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuditConfig holds audit pipeline settings
type AuditConfig struct {
	// RevenuePolicy: "all" counts every invoice toward rolling revenue,
	// "approved_only" excludes service-code violations.
	RevenuePolicy string
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FISCAL_ prefix (e.g. FISCAL_DATABASE_DSN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/fiscalaudit")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	v.SetEnvPrefix("FISCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("database.driver"),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Address:      v.GetString("http.address"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			Debug:        v.GetBool("http.debug"),
		},
		Registry: RegistryConfig{
			BaseURL: v.GetString("registry.base_url"),
			Timeout: v.GetDuration("registry.timeout"),
		},
		Audit: AuditConfig{
			RevenuePolicy: v.GetString("audit.revenue_policy"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fiscal-audit"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "fiscal_audit.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fiscal-audit"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = "https://brasilapi.com.br"
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = 10 * time.Second
	}
	if cfg.Audit.RevenuePolicy == "" {
		cfg.Audit.RevenuePolicy = "all"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	switch c.Audit.RevenuePolicy {
	case "all", "approved_only":
	default:
		return fmt.Errorf("audit.revenue_policy must be all or approved_only, got %q", c.Audit.RevenuePolicy)
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
	}

	return nil
}
