// Package config provides configuration management for the hub process.
//
// Configuration Loading Order:
// 1. Load from .env file (if present)
// 2. Load from environment variables
// 3. Apply CLI flag overrides (bind host, port, log level, data/log dirs —
//    see Overrides/ApplyOverrides), highest precedence of the three
// 4. Update from the store's credential table (credentials only, once the
//    store is open — see UpdateFromStore)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/tickertronix/hub/internal/errs"
)

// Config holds process-wide configuration for the hub.
type Config struct {
	DataDir      string // base directory for the SQLite file and warm cache, always absolute
	BindHost     string // HTTP listen host
	Port         int    // HTTP listen port
	LogLevel     string // debug, info, warn, error
	LogDir       string // optional log directory; carried in config only, the logger writes to stdout regardless

	EquitiesBaseURL string // equities/crypto provider base URL
	EquitiesAPIKey  string // equities/crypto provider key, overridden by the store if present
	EquitiesSecret  string // equities/crypto provider secret, overridden by the store if present

	ForexBaseURL string // forex provider base URL
	ForexAPIKey  string // forex provider key, overridden by the store if present

	GeneralIntervalSeconds int // equities/crypto refresh cadence (default 300)
	ForexIntervalSeconds   int // forex refresh cadence (default 3600)

	ForexBatchSize        int // symbols per forex batch request (default 8)
	ForexBatchDelaySeconds int // delay between forex batches (default 10)
	ForexCreditsPerMinute int // forex credit budget per minute (default 8)
	ForexCreditsPerDay    int // forex credit budget per day (default 800)

	InterRequestDelayMillis int // equities/crypto adapter's inter-request delay (default 500)
	UpstreamTimeoutSeconds  int // per-call upstream HTTP timeout (default 15)

	LANIPHint string // optional LAN IP hint surfaced to admin tooling
}

// CredentialUpdater is satisfied by the store's credential repository;
// kept as an interface here so config does not import the store package.
type CredentialUpdater interface {
	GetCredential(provider string) (key, secret string, ok bool, err error)
}

// Load builds Config from a .env file (if present) and the process
// environment, applying defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("HUB_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		BindHost:                getEnv("HUB_BIND_HOST", "0.0.0.0"),
		Port:                    getEnvAsInt("HUB_PORT", 8090),
		LogLevel:                getEnv("HUB_LOG_LEVEL", "info"),
		LogDir:                  getEnv("HUB_LOG_DIR", ""),
		EquitiesBaseURL:         getEnv("HUB_EQUITIES_BASE_URL", "https://data.alpaca.markets"),
		EquitiesAPIKey:          getEnv("HUB_EQUITIES_API_KEY", ""),
		EquitiesSecret:          getEnv("HUB_EQUITIES_SECRET", ""),
		ForexBaseURL:            getEnv("HUB_FOREX_BASE_URL", "https://api.twelvedata.com"),
		ForexAPIKey:             getEnv("HUB_FOREX_API_KEY", ""),
		GeneralIntervalSeconds:  getEnvAsInt("HUB_GENERAL_INTERVAL_SECONDS", 300),
		ForexIntervalSeconds:    getEnvAsInt("HUB_FOREX_INTERVAL_SECONDS", 3600),
		ForexBatchSize:          getEnvAsInt("HUB_FOREX_BATCH_SIZE", 8),
		ForexBatchDelaySeconds:  getEnvAsInt("HUB_FOREX_BATCH_DELAY_SECONDS", 10),
		ForexCreditsPerMinute:   getEnvAsInt("HUB_FOREX_CREDITS_PER_MINUTE", 8),
		ForexCreditsPerDay:      getEnvAsInt("HUB_FOREX_CREDITS_PER_DAY", 800),
		InterRequestDelayMillis: getEnvAsInt("HUB_INTER_REQUEST_DELAY_MS", 500),
		UpstreamTimeoutSeconds:  getEnvAsInt("HUB_UPSTREAM_TIMEOUT_SECONDS", 15),
		LANIPHint:               getEnv("HUB_LAN_IP_HINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required fields are present, producing a FatalConfig
// condition (per the hub's error taxonomy) if not.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errs.New(errs.KindFatalConfig, "HUB_DATA_DIR must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errs.New(errs.KindFatalConfig, fmt.Sprintf("HUB_PORT must be a valid TCP port, got %d", c.Port))
	}
	return nil
}

// Overrides carries the hub binary's CLI flag values. A zero value (empty
// string or port 0) means the flag was left unset, so the env/.env-derived
// Config field stands.
type Overrides struct {
	BindHost string
	Port     int
	LogLevel string
	DataDir  string
	LogDir   string
}

// ApplyOverrides layers CLI flags on top of the env-derived Config, per
// the hub's configuration loading order: CLI flag, then environment,
// then default. A DataDir override is re-resolved to an absolute path
// and (re-)created, same as Load does for the env-sourced value.
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.BindHost != "" {
		c.BindHost = o.BindHost
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogDir != "" {
		c.LogDir = o.LogDir
	}
	if o.DataDir != "" {
		absDataDir, err := filepath.Abs(o.DataDir)
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		if err := os.MkdirAll(absDataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		c.DataDir = absDataDir
	}
	return c.Validate()
}

// UpdateFromStore overrides the forex API key from the store's credential
// table when one is present. Store wins over environment, never the
// other way around.
func (c *Config) UpdateFromStore(creds CredentialUpdater) error {
	if creds == nil {
		return nil
	}
	if _, secret, ok, err := creds.GetCredential("forex"); err != nil {
		return fmt.Errorf("failed to load forex credential from store: %w", err)
	} else if ok && secret != "" {
		c.ForexAPIKey = secret
	}
	if key, secret, ok, err := creds.GetCredential("equities"); err != nil {
		return fmt.Errorf("failed to load equities credential from store: %w", err)
	} else if ok {
		if key != "" {
			c.EquitiesAPIKey = key
		}
		if secret != "" {
			c.EquitiesSecret = secret
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
