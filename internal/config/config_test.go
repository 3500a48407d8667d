package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SANMAR_USERNAME", "")
	t.Setenv("SANMAR_PASSWORD", "")
	t.Setenv("SANMAR_CUSTOMER_NUMBER", "")
	t.Setenv("AUTOCOMPLETE_STYLES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.RetryInitialBackoff)
	assert.Equal(t, 15*time.Minute, cfg.Cache.PricingTTL)
	assert.Equal(t, time.Hour, cfg.Cache.SecondaryTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.InventoryTTL)
	assert.Equal(t, time.Hour, cfg.Cache.StaleRetention)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)
	assert.False(t, cfg.Catalog.Development)
	assert.Contains(t, cfg.AutocompleteStyles, "PC61")
	assert.False(t, cfg.HasCredentials())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SANMAR_USERNAME", "user")
	t.Setenv("SANMAR_PASSWORD", "secret")
	t.Setenv("SANMAR_CUSTOMER_NUMBER", "12345")
	t.Setenv("SANMAR_DEVELOPMENT", "true")
	t.Setenv("PRICING_CACHE_TTL", "900s")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("AUTOCOMPLETE_STYLES", " PC61, J790 ,,")
	t.Setenv("WARM_STYLES", "PC61/White")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.HasCredentials())
	assert.True(t, cfg.Catalog.Development)
	assert.Equal(t, 15*time.Minute, cfg.Cache.PricingTTL)
	assert.Equal(t, 5, cfg.Catalog.RetryMaxAttempts)
	assert.Equal(t, []string{"PC61", "J790"}, cfg.AutocompleteStyles)
	assert.Equal(t, "PC61/White", cfg.WarmStyles)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SANMAR_DEVELOPMENT", "maybe"},
		{"LOG_PRETTY", "yes please"},
		{"RETRY_MAX_ATTEMPTS", "three"},
		{"RETRY_MAX_ATTEMPTS", "0"},
		{"CATALOG_TIMEOUT", "soon"},
		{"CATALOG_TIMEOUT", "0s"},
		{"PRICING_CACHE_TTL", "-1m"},
		{"SECONDARY_CACHE_TTL", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
