// Package config loads the pricing server configuration from the
// environment, reading a .env file first when one exists.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	Port string
	Env  string

	Log     LogConfig
	Catalog CatalogConfig
	Cache   CacheConfig

	// WarmStyles is a comma separated "STYLE[/COLOR]" list warmed at startup.
	WarmStyles string

	// AutocompleteStyles are the styles offered by the autocomplete endpoint.
	AutocompleteStyles []string

	// OverridesFile is an optional JSON price override table.
	OverridesFile string
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// CatalogConfig contains the remote catalog endpoint, credentials and
// call policy.
type CatalogConfig struct {
	Username       string
	Password       string
	CustomerNumber string

	Development  bool
	PricingURL   string
	InventoryURL string

	Timeout             time.Duration
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
}

// CacheConfig contains the server-tier cache lifetimes.
type CacheConfig struct {
	PricingTTL     time.Duration
	SecondaryTTL   time.Duration
	InventoryTTL   time.Duration
	StaleRetention time.Duration
	SweepInterval  time.Duration
}

// defaultAutocompleteStyles is the suggestion list used when
// AUTOCOMPLETE_STYLES is not set.
var defaultAutocompleteStyles = []string{
	"PC61", "5000", "DT6000", "ST850", "K420", "L110", "G200",
	"G800", "M1000", "K500", "L100", "8800", "PC55", "J790", "C112",
}

// Load reads the configuration. Credentials may be empty: their absence
// fails pricing calls, not startup.
func Load() (*Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			Username:       getEnv("SANMAR_USERNAME", ""),
			Password:       getEnv("SANMAR_PASSWORD", ""),
			CustomerNumber: getEnv("SANMAR_CUSTOMER_NUMBER", ""),
			PricingURL:     getEnv("SANMAR_PRICING_URL", ""),
			InventoryURL:   getEnv("SANMAR_INVENTORY_URL", ""),
		},
		WarmStyles:         getEnv("WARM_STYLES", ""),
		AutocompleteStyles: getEnvList("AUTOCOMPLETE_STYLES", defaultAutocompleteStyles),
		OverridesFile:      getEnv("PRICE_OVERRIDES_FILE", ""),
	}

	var err error
	if cfg.Log.Pretty, err = getEnvBool("LOG_PRETTY", false); err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}
	if cfg.Catalog.Development, err = getEnvBool("SANMAR_DEVELOPMENT", false); err != nil {
		return nil, fmt.Errorf("invalid SANMAR_DEVELOPMENT: %w", err)
	}
	if cfg.Catalog.RetryMaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}
	if cfg.Catalog.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: must be >= 1")
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"CATALOG_TIMEOUT", "30s", &cfg.Catalog.Timeout},
		{"RETRY_INITIAL_BACKOFF", "500ms", &cfg.Catalog.RetryInitialBackoff},
		{"PRICING_CACHE_TTL", "15m", &cfg.Cache.PricingTTL},
		{"SECONDARY_CACHE_TTL", "1h", &cfg.Cache.SecondaryTTL},
		{"INVENTORY_CACHE_TTL", "15m", &cfg.Cache.InventoryTTL},
		{"STALE_RETENTION", "1h", &cfg.Cache.StaleRetention},
		{"CACHE_SWEEP_INTERVAL", "5m", &cfg.Cache.SweepInterval},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.Catalog.Timeout == 0 {
		return nil, fmt.Errorf("invalid CATALOG_TIMEOUT: must be > 0")
	}
	if cfg.Cache.PricingTTL == 0 || cfg.Cache.SecondaryTTL == 0 || cfg.Cache.InventoryTTL == 0 {
		return nil, fmt.Errorf("cache TTLs must be > 0")
	}

	return cfg, nil
}

// HasCredentials reports whether the catalog credential triple is set.
func (c *Config) HasCredentials() bool {
	return c.Catalog.Username != "" && c.Catalog.Password != "" && c.Catalog.CustomerNumber != ""
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

// getEnvList splits a comma separated variable, dropping blank items.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable as a time.Duration,
// falling back to def when it is empty.
func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
