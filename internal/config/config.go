// Package config loads client and stub server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends for persisted credentials.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ClientConfig captures everything the rs CLI and the client packages need.
// Values come from the environment with defaults that work against a local
// backend; CLI flags override them afterwards.
type ClientConfig struct {
	APIURL       string
	Timeout      time.Duration
	PollInterval time.Duration
	DropdownSize int

	Store           string
	StoreDir        string
	StorePassphrase string

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	PGDSN string

	KafkaBrokers []string
	KafkaTopic   string

	MetricsAddr string
	LogLevel    string
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:       "http://localhost:8000/api",
		Timeout:      10 * time.Second,
		PollInterval: 10 * time.Second,
		DropdownSize: 5,
		Store:        StoreFile,
		StoreDir:     defaultStoreDir(),
		RedisAddr:    "localhost:6379",
		RedisPrefix:  "rideshare:",
		KafkaTopic:   "rideshare-notifications",
		LogLevel:     "warn",
	}
}

// LoadClientConfig reads RIDESHARE_* variables and LOG_LEVEL. All parse
// errors are reported together.
func LoadClientConfig() (ClientConfig, error) {
	cfg := defaultClientConfig()
	var errs []error

	setStringFromEnv(&cfg.APIURL, "RIDESHARE_API_URL")
	setDurationFromEnv(&cfg.Timeout, "RIDESHARE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.PollInterval, "RIDESHARE_POLL_INTERVAL", &errs)
	setIntFromEnv(&cfg.DropdownSize, "RIDESHARE_DROPDOWN_SIZE", &errs)

	setStringFromEnv(&cfg.Store, "RIDESHARE_STORE")
	cfg.Store = strings.ToLower(cfg.Store)
	setStringFromEnv(&cfg.StoreDir, "RIDESHARE_STORE_DIR")
	cfg.StorePassphrase = os.Getenv("RIDESHARE_STORE_PASSPHRASE")

	setStringFromEnv(&cfg.RedisAddr, "RIDESHARE_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("RIDESHARE_REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisPrefix, "RIDESHARE_REDIS_PREFIX")

	cfg.PGDSN = strings.TrimSpace(os.Getenv("RIDESHARE_PG_DSN"))

	if brokers := os.Getenv("RIDESHARE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "RIDESHARE_KAFKA_TOPIC")

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("RIDESHARE_METRICS_ADDR"))

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	errs = append(errs, cfg.Validate()...)
	return cfg, errors.Join(errs...)
}

// Validate checks cross-field constraints. It is run again by the CLI after
// flags are applied.
func (c ClientConfig) Validate() []error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("RIDESHARE_TIMEOUT must be > 0"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("RIDESHARE_POLL_INTERVAL must be > 0"))
	}
	if c.DropdownSize <= 0 {
		errs = append(errs, fmt.Errorf("RIDESHARE_DROPDOWN_SIZE must be > 0"))
	}
	switch c.Store {
	case StoreFile, StoreMemory, StoreRedis:
	case StorePostgres:
		if c.PGDSN == "" {
			errs = append(errs, fmt.Errorf("RIDESHARE_PG_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RIDESHARE_STORE %q", c.Store))
	}
	return errs
}

// StubConfig configures the in-memory backend served by rs-stub.
type StubConfig struct {
	Addr            string
	JWTKey          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

func defaultStubConfig() StubConfig {
	return StubConfig{
		Addr:            ":8000",
		AccessTTL:       60 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// LoadStubConfig reads STUB_* variables and LOG_LEVEL.
func LoadStubConfig() (StubConfig, error) {
	cfg := defaultStubConfig()
	var errs []error

	setStringFromEnv(&cfg.Addr, "STUB_ADDR")
	cfg.JWTKey = os.Getenv("STUB_JWT_KEY")
	setDurationFromEnv(&cfg.AccessTTL, "STUB_ACCESS_TTL", &errs)
	setDurationFromEnv(&cfg.RefreshTTL, "STUB_REFRESH_TTL", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "STUB_SHUTDOWN_TIMEOUT", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.AccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("STUB_ACCESS_TTL must be > 0"))
	}
	return cfg, errors.Join(errs...)
}

func defaultStoreDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "rideshare")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rideshare")
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
