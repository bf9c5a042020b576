package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vaultmesh/covenant/pkg/config"
	"github.com/vaultmesh/covenant/pkg/integrity"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
// Invariant: System must boot with safe defaults in dev mode.
func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "STORE_DRIVER", "STORE_DSN", "TSA_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"SIGNING_KEY_PATH", "SIGNING_KEY_ID", "MAX_SKEW_SECS", "NONCE_TTL_SECS",
	} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, integrity.FreeTSAURL, cfg.TSAURL)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, "default", cfg.SigningKeyID)
	assert.Equal(t, int64(300), cfg.MaxSkewSecs)
	assert.Equal(t, int64(300), cfg.NonceTTLSecs)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
// Invariant: Ops can control config via standard 12-factor env vars.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", "/var/lib/covenant/receipts.db")
	t.Setenv("TSA_URL", integrity.DigiCertTSAURL)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SIGNING_KEY_PATH", "/etc/covenant/ed25519.pem")
	t.Setenv("SIGNING_KEY_ID", "ops-2025")
	t.Setenv("MAX_SKEW_SECS", "60")
	t.Setenv("NONCE_TTL_SECS", "120")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "/var/lib/covenant/receipts.db", cfg.StoreDSN)
	assert.Equal(t, integrity.DigiCertTSAURL, cfg.TSAURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "/etc/covenant/ed25519.pem", cfg.SigningKeyPath)
	assert.Equal(t, "ops-2025", cfg.SigningKeyID)
	assert.Equal(t, int64(60), cfg.MaxSkewSecs)
	assert.Equal(t, int64(120), cfg.NonceTTLSecs)
}
