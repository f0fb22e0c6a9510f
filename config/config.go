// Package config loads application configuration from a config.yaml file,
// a .env file and environment variables. Database credentials always come
// from the environment; tuning knobs live in config.yaml.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`

	// HostIPv4Override skips DNS resolution entirely and connects to the
	// given IPv4 address. An invalid value falls back to normal resolution.
	HostIPv4Override string `yaml:"host_ipv4_override"`

	// MaxRetries bounds the connection retry loop after a classified
	// transient failure.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBaseSeconds is the first retry delay; subsequent delays double.
	BackoffBaseSeconds int `yaml:"backoff_base_seconds"`
}

// BackoffBase returns the initial retry delay as a duration.
func (c DBConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseSeconds) * time.Second
}

// DSN builds a libpq keyword DSN. When hostaddr is non-empty the TCP
// connection goes straight to that IPv4 address while host is still sent
// for TLS/auth purposes.
func (c DBConfig) DSN(hostaddr string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=10 application_name=stockcollect options='-c statement_timeout=300000'",
		c.Host, c.Port, c.User, c.Password, c.Name)
	if hostaddr != "" {
		dsn += " hostaddr=" + hostaddr
	}
	return dsn
}

// CollectionConfig holds tuning knobs for the collectors.
type CollectionConfig struct {
	// DefaultStartDate is the backfill floor used when no watermark exists.
	DefaultStartDate string `yaml:"default_start_date"`

	// BatchSize is the number of rows per upsert batch.
	BatchSize int `yaml:"batch_size"`

	// RequestDelaySeconds is the pause between per-symbol provider calls.
	RequestDelaySeconds float64 `yaml:"request_delay"`

	// MaxRetries bounds the provider fetch retry loop.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelaySeconds is the base delay between provider retries.
	RetryDelaySeconds float64 `yaml:"retry_delay"`

	// RateLimitDelaySeconds is the wait applied when the provider reports
	// a rate limit.
	RateLimitDelaySeconds float64 `yaml:"rate_limit_delay"`
}

func (c CollectionConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

func (c CollectionConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

func (c CollectionConfig) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimitDelaySeconds * float64(time.Second))
}

// StartDate parses DefaultStartDate. A malformed value is a configuration
// error and fails fast.
func (c CollectionConfig) StartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.DefaultStartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid default_start_date %q: %w", c.DefaultStartDate, err)
	}
	return t, nil
}

// ProviderConfig holds market data provider settings.
type ProviderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"-"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig holds settings for the status API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Config is the root application configuration.
type Config struct {
	DB         DBConfig         `yaml:"db"`
	Collection CollectionConfig `yaml:"collection"`
	Provider   ProviderConfig   `yaml:"provider"`
	Indices    []string         `yaml:"indices"`
	Server     ServerConfig     `yaml:"server"`
}

// Default returns the built-in configuration used when config.yaml is
// absent or leaves fields unset.
func Default() Config {
	return Config{
		DB: DBConfig{
			Host:               "localhost",
			Port:               5432,
			Name:               "postgres",
			MaxRetries:         4,
			BackoffBaseSeconds: 1,
		},
		Collection: CollectionConfig{
			DefaultStartDate:      "2012-01-01",
			BatchSize:             500,
			RequestDelaySeconds:   0.5,
			MaxRetries:            3,
			RetryDelaySeconds:     5,
			RateLimitDelaySeconds: 60,
		},
		Provider: ProviderConfig{
			BaseURL:           "https://api.vci.com.vn/v1",
			RequestsPerMinute: 60,
			TimeoutSeconds:    30,
		},
		Indices: []string{"VNINDEX", "HNX-INDEX", "UPCOM-INDEX"},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads config.yaml from path (if it exists), loads .env, and applies
// environment variable overrides. Pass an empty path to use "config.yaml"
// in the working directory.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvInt("DB_PORT", cfg.DB.Port)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.User = getEnv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.HostIPv4Override = getEnv("DB_HOST_IPV4", cfg.DB.HostIPv4Override)
	cfg.Provider.APIKey = getEnv("PROVIDER_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.BaseURL = getEnv("PROVIDER_BASE_URL", cfg.Provider.BaseURL)

	if cfg.DB.MaxRetries <= 0 {
		cfg.DB.MaxRetries = 4
	}
	if cfg.DB.BackoffBaseSeconds <= 0 {
		cfg.DB.BackoffBaseSeconds = 1
	}
	if cfg.Collection.BatchSize <= 0 {
		cfg.Collection.BatchSize = 500
	}
	if _, err := cfg.Collection.StartDate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}
