// Package config loads all runtime configuration once at process start, so
// handlers receive a single Config instead of reading the environment at
// point of use.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is the full runtime configuration of the storefront binary.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// BaseURL is the absolute public URL of this service, used to build the
	// callback and webhook URLs embedded in checkout preferences.
	BaseURL string

	// AccessToken is the gateway credential.
	AccessToken string

	// GatewayURL is the gateway API root. Overridable so tests can point the
	// client at a local mock server.
	GatewayURL string

	// Debug selects the sandbox checkout URL instead of the production one.
	Debug bool

	// DBPath is the SQLite database file.
	DBPath string

	// RedisAddr enables the catalog cache when non-empty.
	RedisAddr string
}

// Load reads the configuration from the environment. It fails fast on a
// missing gateway credential so a misconfigured deploy dies at startup, not
// on the first checkout.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:        getEnv("LISTEN_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		AccessToken: os.Getenv("MP_ACCESS_TOKEN"),
		GatewayURL:  strings.TrimRight(getEnv("MP_API_URL", "https://api.mercadopago.com"), "/"),
		Debug:       strings.EqualFold(getEnv("DEBUG", "false"), "true"),
		DBPath:      getEnv("DB_PATH", "./data/store.db"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("config: MP_ACCESS_TOKEN is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
