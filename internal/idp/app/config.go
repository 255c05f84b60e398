package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer identifier, also the base URL in discovery

	Algorithm      string // Optional: token signing algorithm (RS256, ES256, EdDSA) (default: ES256)
	RSABits        int    // Optional: RSA key size for RS256 (default: 2048)
	SigningKeyFile string // Optional: PEM signing key; empty generates an ephemeral key

	DatabaseFile string // Optional: path to SQLite database file (default: ./idp.db)
	SeedFile     string // Optional: JSON seed with clients, scopes and users for dev/test instances

	ClientScopeCacheTTL time.Duration // Read-through cache TTL for client and scope records (default: 1m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired grant sweep interval (default: 1h)

	EnableLocalLogin        bool // Global password-grant and local-login switch (default: true)
	EnableSessionManagement bool // Emit session_state for the check-session iframe (default: false)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:                  os.Getenv("IDP_ISSUER"),
		Algorithm:               getEnvOrDefault("IDP_ALGORITHM", "ES256"),
		SigningKeyFile:          os.Getenv("IDP_SIGNING_KEY_FILE"),
		DatabaseFile:            getEnvOrDefault("IDP_DATABASE_FILE", "idp.db"),
		SeedFile:                os.Getenv("IDP_SEED_FILE"),
		ClientScopeCacheTTL:     getEnvDurationOrDefault("IDP_CLIENT_SCOPE_CACHE_TTL", time.Minute),
		Env:                     getEnvOrDefault("ENV", "dev"),
		LogLevel:                getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                    getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:     getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:    getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		EnableLocalLogin:        getEnvBoolOrDefault("IDP_ENABLE_LOCAL_LOGIN", true),
		EnableSessionManagement: getEnvBoolOrDefault("IDP_ENABLE_SESSION_MANAGEMENT", false),
	}

	// Parse RSA bits (only relevant for RS256)
	if rsaBitsStr := os.Getenv("IDP_RSA_BITS"); rsaBitsStr != "" {
		if bits, err := strconv.Atoi(rsaBitsStr); err == nil {
			cfg.RSABits = bits
		}
		// If parsing fails, RSABits remains 0 (will use default in KeyManager)
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8080"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
