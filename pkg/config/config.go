// Package config loads runtime configuration for the receiptctl CLI and
// its signed-callback server from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/vaultmesh/covenant/pkg/integrity"
)

// Config holds everything receiptctl needs to build a store, sign or
// verify HTTP callbacks, and request timestamps.
type Config struct {
	Port     string
	LogLevel string

	StoreDriver string // "memory" | "sqlite" | "postgres"
	StoreDSN    string

	TSAURL string

	RedisAddr     string // "" selects the in-memory nonce store
	RedisPassword string
	RedisDB       int

	SigningKeyPath string // PEM path to an Ed25519 PKCS#8 private key
	SigningKeyID   string

	MaxSkewSecs  int64
	NonceTTLSecs int64
}

// Load reads Config from environment variables, applying the same
// conservative defaults a fresh local checkout should boot with.
func Load() *Config {
	return &Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		StoreDriver: getenv("STORE_DRIVER", "memory"),
		StoreDSN:    getenv("STORE_DSN", ""),

		TSAURL: getenv("TSA_URL", integrity.FreeTSAURL),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		SigningKeyPath: getenv("SIGNING_KEY_PATH", ""),
		SigningKeyID:   getenv("SIGNING_KEY_ID", "default"),

		MaxSkewSecs:  getenvInt64("MAX_SKEW_SECS", 300),
		NonceTTLSecs: getenvInt64("NONCE_TTL_SECS", 300),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
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

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
