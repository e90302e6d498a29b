// Package config loads runtime settings: built-in defaults, then an optional
// YAML or JSON file named by -c/-config, then short command-line flags.
// Later sources override earlier ones.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/flagx"
)

// Config holds runtime settings for the circulation tool.
//
// Driver is one of "postgres", "sqlite" or "memory". SecretKey signs session
// tokens and must be overridden outside development. AMQPURL enables event
// publishing when set. SeedFile, when set, names a YAML catalog loaded at
// startup.
type Config struct {
	Driver          string        `yaml:"driver"`
	DatabaseDSN     string        `yaml:"database_dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	SecretKey       string        `yaml:"secret_key"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	AMQPURL         string        `yaml:"amqp_url"`
	AMQPExchange    string        `yaml:"amqp_exchange"`
	SeedFile        string        `yaml:"seed_file"`
	LogLevel        string        `yaml:"log_level"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Driver = "sqlite"
	c.DatabaseDSN = "file:libcirc.db"
	c.MaxOpenConns = 10
	c.ConnMaxLifetime = 30 * time.Minute
	c.ConnMaxIdleTime = 5 * time.Minute
	c.SecretKey = "secretKey"
	c.SessionTTL = 30 * time.Minute
	c.LockTimeout = 5 * time.Second
	c.RetryAttempts = 5
	c.RetryBaseDelay = 10 * time.Millisecond
	c.AMQPExchange = "libcirc.circulation"
	c.LogLevel = "info"
}

// Validate rejects settings the tool cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case "postgres", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.Driver != "memory" && c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is empty"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
