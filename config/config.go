// Package config loads the shop's YAML configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all shop configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type SessionConfig struct {
	Backend       string `yaml:"backend"`
	TTL           string `yaml:"ttl"`
	SweepInterval string `yaml:"sweep_interval"`
	SecureCookie  bool   `yaml:"secure_cookie"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CheckoutConfig struct {
	PaymentDelay  string `yaml:"payment_delay"`
	RedirectDelay string `yaml:"redirect_delay"`
	TaxRate       string `yaml:"tax_rate"`
	Currency      string `yaml:"currency"`
}

type CatalogConfig struct {
	// Path to a catalog YAML file. Empty means the built-in catalog.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Session: SessionConfig{
			Backend:       BackendMemory,
			TTL:           "24h",
			SweepInterval: "1m",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Checkout: CheckoutConfig{
			PaymentDelay:  "2s",
			RedirectDelay: "1.5s",
			TaxRate:       "0.1",
			Currency:      "USD",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "production",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SHOP_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if backend := os.Getenv("SHOP_SESSION_BACKEND"); backend != "" {
		c.Session.Backend = backend
	}
	if level := os.Getenv("SHOP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	// REDIS_HOST and REDIS_PORT replace only their half of redis.addr.
	host, port, err := net.SplitHostPort(c.Redis.Addr)
	if err != nil {
		host, port = c.Redis.Addr, "6379"
	}
	envHost, envPort := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
	if envHost != "" {
		host = envHost
	}
	if envPort != "" {
		port = envPort
	}
	if envHost != "" || envPort != "" {
		c.Redis.Addr = net.JoinHostPort(host, port)
	}
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func (c *Config) GetSessionTTL() time.Duration {
	return duration(c.Session.TTL, 24*time.Hour)
}

func (c *Config) GetSweepInterval() time.Duration {
	return duration(c.Session.SweepInterval, time.Minute)
}

func (c *Config) GetPaymentDelay() time.Duration {
	return duration(c.Checkout.PaymentDelay, 2*time.Second)
}

func (c *Config) GetRedirectDelay() time.Duration {
	return duration(c.Checkout.RedirectDelay, 1500*time.Millisecond)
}

// GetTaxRate returns the configured rate, or 10% when it does not parse.
func (c *Config) GetTaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Checkout.TaxRate)
	if err != nil {
		return decimal.RequireFromString("0.1")
	}
	return rate
}

func (c *Config) GetCurrency() currency.Unit {
	cur, err := currency.ParseISO(c.Checkout.Currency)
	if err != nil {
		return currency.USD
	}
	return cur
}

var ValidBackends = []string{BackendMemory, BackendRedis}

var ValidLogFormats = []string{"production", "development"}

// Validate checks the values the defaulting accessors would otherwise hide.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if !slices.Contains(ValidBackends, c.Session.Backend) {
		return fmt.Errorf("invalid session backend: %s (valid: %v)", c.Session.Backend, ValidBackends)
	}
	if c.Session.Backend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis session backend")
	}

	durations := []struct {
		key, value string
	}{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"session.ttl", c.Session.TTL},
		{"session.sweep_interval", c.Session.SweepInterval},
		{"checkout.payment_delay", c.Checkout.PaymentDelay},
		{"checkout.redirect_delay", c.Checkout.RedirectDelay},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("invalid %s %q: negative", d.key, d.value)
		}
	}
	if c.GetSessionTTL() == 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.GetSweepInterval() == 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}

	rate, err := decimal.NewFromString(c.Checkout.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid checkout.tax_rate %q: %w", c.Checkout.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("checkout.tax_rate must be in [0, 1): %s", rate)
	}
	if _, err := currency.ParseISO(c.Checkout.Currency); err != nil {
		return fmt.Errorf("invalid checkout.currency %q: %w", c.Checkout.Currency, err)
	}

	if !slices.Contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db: %d", c.Redis.DB)
	}
	return nil
}
