package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all configuration for the node.
type Config struct {
	Port        string
	Env         string
	Store       string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Ledger
	RentLamportsPerByte uint64
	AirdropEnabled      bool
	GenesisFile         string
	OperatorKey         string // base64 Ed25519 key that initializes config from genesis

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		Store:               getEnv("STORE", StoreMemory),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          getEnv("SQLITE_PATH", "messenger.db"),
		RedisURL:            os.Getenv("REDIS_URL"),
		RentLamportsPerByte: getUint("RENT_LAMPORTS_PER_BYTE", 6960),
		GenesisFile:         os.Getenv("GENESIS_FILE"),
		OperatorKey:         os.Getenv("OPERATOR_KEY"),
		AutoBlockEnabled:    getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}
	cfg.AirdropEnabled = getEnv("AIRDROP_ENABLED", strconv.FormatBool(cfg.IsDevelopment())) == "true"

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if cfg.Env == "production" {
		if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.AirdropEnabled {
			panic("AIRDROP_ENABLED must be false in production")
		}
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		panic("STORE must be one of memory, sqlite, postgres")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		panic(key + " must be a non-negative integer")
	}
	return n
}
