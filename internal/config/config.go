// Package config loads and validates the HCL configuration consumed by
// the server and CLI commands.
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the top-level configuration.
type Config struct {
	// ListenAddr is the address the API server binds to.
	ListenAddr string `hcl:"listen_addr,optional"`

	// LogLevel sets the hclog level: trace, debug, info, warn, error.
	LogLevel string `hcl:"log_level,optional"`

	Database    *Database    `hcl:"database,block"`
	BigCommerce *BigCommerce `hcl:"bigcommerce,block"`
	Migration   *Migration   `hcl:"migration,block"`
}

// Database configures the backing store.
type Database struct {
	// Driver is postgres or sqlite.
	Driver string `hcl:"driver,optional"`

	// Path is the SQLite database file.
	Path string `hcl:"path,optional"`

	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	MaxIdleConns int `hcl:"max_idle_conns,optional"`
	MaxOpenConns int `hcl:"max_open_conns,optional"`
}

// BigCommerce configures the API client shared by all store
// connections. Credentials live per store in the database, not here.
type BigCommerce struct {
	// BaseURL is overridable for tests and proxies.
	BaseURL string `hcl:"base_url,optional"`

	// TimeoutSeconds bounds each API request.
	TimeoutSeconds int `hcl:"timeout,optional"`

	// PageSize is the fetch page size, capped at 250 by the API.
	PageSize int `hcl:"page_size,optional"`

	// MaxAttempts bounds retries per request.
	MaxAttempts int `hcl:"max_attempts,optional"`
}

// Migration configures batch execution.
type Migration struct {
	// PacingMS is the delay between item operations in milliseconds.
	PacingMS int `hcl:"pacing_ms,optional"`
}

// NewConfig parses an HCL configuration file and applies defaults.
func NewConfig(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration suitable for local runs with no
// config file: SQLite in the working directory.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Database == nil {
		c.Database = &Database{}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "catsync.db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.BigCommerce == nil {
		c.BigCommerce = &BigCommerce{}
	}
	if c.BigCommerce.BaseURL == "" {
		c.BigCommerce.BaseURL = "https://api.bigcommerce.com"
	}
	if c.BigCommerce.TimeoutSeconds == 0 {
		c.BigCommerce.TimeoutSeconds = 120
	}
	if c.BigCommerce.PageSize == 0 {
		c.BigCommerce.PageSize = 250
	}
	if c.BigCommerce.MaxAttempts == 0 {
		c.BigCommerce.MaxAttempts = 3
	}

	if c.Migration == nil {
		c.Migration = &Migration{}
	}
	if c.Migration.PacingMS == 0 {
		c.Migration.PacingMS = 500
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Host == "" {
			result = multierror.Append(result,
				fmt.Errorf("database host is required for the postgres driver"))
		}
		if c.Database.DBName == "" {
			result = multierror.Append(result,
				fmt.Errorf("database dbname is required for the postgres driver"))
		}
	default:
		result = multierror.Append(result,
			fmt.Errorf("unsupported database driver: %q", c.Database.Driver))
	}

	if c.BigCommerce.PageSize < 1 || c.BigCommerce.PageSize > 250 {
		result = multierror.Append(result,
			fmt.Errorf("bigcommerce page_size must be between 1 and 250"))
	}
	if c.BigCommerce.MaxAttempts < 1 {
		result = multierror.Append(result,
			fmt.Errorf("bigcommerce max_attempts must be at least 1"))
	}
	if c.Migration.PacingMS < 0 {
		result = multierror.Append(result,
			fmt.Errorf("migration pacing_ms cannot be negative"))
	}

	return result.ErrorOrNil()
}

// Pacing returns the configured delay between batch items.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Migration.PacingMS) * time.Millisecond
}
