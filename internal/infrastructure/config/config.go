// SPDX-License-Identifier: AGPL-3.0-or-later
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/certenio/pending-discovery/pkg/logger"
)

// Config is the full configuration surface for the discovery service,
// assembled once at startup and passed down by value/pointer to every
// component that needs it.
type Config struct {
	Ledger     LedgerConfig
	Store      StoreConfig
	Discovery  DiscoveryConfig
	Supervisor SupervisorConfig
	Logger     LoggerConfig
	DryRun     bool
}

// LedgerConfig describes how to reach the Accumulate JSON-RPC endpoint.
type LedgerConfig struct {
	APIURL         string
	Network        string // "mainnet", "testnet", "devnet", "local"
	RequestTimeout int    // seconds
	MaxRetries     int
}

// StoreConfig describes how to reach the Firestore document store.
type StoreConfig struct {
	ProjectID       string
	CredentialsPath string // empty uses ambient credentials
	EmulatorHost    string // empty uses real Firestore
	UsersCollection string
}

// DiscoveryConfig bounds the signing-path exploration and pagination.
type DiscoveryConfig struct {
	DelegationDepth int
	PendingPageSize int
}

// SupervisorConfig controls the polling loop and its concurrency.
type SupervisorConfig struct {
	PollIntervalSec int
	UserConcurrency int
}

type LoggerConfig struct {
	Level string
}

var validNetworks = map[string]bool{
	"mainnet": true,
	"testnet": true,
	"devnet":  true,
	"local":   true,
}

// Load loads configuration from environment variables, optionally seeded
// from a .env file first. Invalid enum or numeric values fail startup
// rather than silently falling back to a default. A missing required key
// or a numeric value that does not parse as an integer panics, as
// mustGetEnv does; every other invalid value is returned as an error.
func Load() (*Config, error) {
	if dotenvPath := getEnv("DOTENV_PATH", ""); dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil {
			return nil, fmt.Errorf("failed to load dotenv file %q: %w", dotenvPath, err)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Logger.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{}

	cfg.Ledger.APIURL = getEnv("ACCUMULATE_API_URL", "https://mainnet.accumulatenetwork.io/v3")

	network := strings.ToLower(getEnv("ACCUMULATE_NETWORK", "mainnet"))
	if !validNetworks[network] {
		return nil, fmt.Errorf("invalid ACCUMULATE_NETWORK %q: must be one of mainnet, testnet, devnet, local", network)
	}
	cfg.Ledger.Network = network

	cfg.Ledger.RequestTimeout = getEnvInt("LEDGER_REQUEST_TIMEOUT_SEC", 30)
	if cfg.Ledger.RequestTimeout <= 0 {
		return nil, fmt.Errorf("LEDGER_REQUEST_TIMEOUT_SEC must be positive, got %d", cfg.Ledger.RequestTimeout)
	}

	cfg.Ledger.MaxRetries = getEnvInt("MAX_RETRIES", 3)
	if cfg.Ledger.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must be non-negative, got %d", cfg.Ledger.MaxRetries)
	}

	cfg.Store.ProjectID = mustGetEnv("FIREBASE_PROJECT_ID")
	cfg.Store.CredentialsPath = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg.Store.EmulatorHost = getEnv("FIRESTORE_EMULATOR_HOST", "")
	cfg.Store.UsersCollection = getEnv("USERS_COLLECTION", "users")

	cfg.Discovery.DelegationDepth = getEnvInt("DELEGATION_DEPTH", 10)
	if cfg.Discovery.DelegationDepth <= 0 {
		return nil, fmt.Errorf("DELEGATION_DEPTH must be positive, got %d", cfg.Discovery.DelegationDepth)
	}

	cfg.Discovery.PendingPageSize = getEnvInt("PENDING_PAGE_SIZE", 100)
	if cfg.Discovery.PendingPageSize <= 0 {
		return nil, fmt.Errorf("PENDING_PAGE_SIZE must be positive, got %d", cfg.Discovery.PendingPageSize)
	}

	cfg.Supervisor.PollIntervalSec = getEnvInt("POLL_INTERVAL_SEC", 600)
	if cfg.Supervisor.PollIntervalSec <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SEC must be positive, got %d", cfg.Supervisor.PollIntervalSec)
	}

	cfg.Supervisor.UserConcurrency = getEnvInt("USER_CONCURRENCY", 8)
	if cfg.Supervisor.UserConcurrency <= 0 {
		return nil, fmt.Errorf("USER_CONCURRENCY must be positive, got %d", cfg.Supervisor.UserConcurrency)
	}

	logLevel := getEnv("LOG_LEVEL", "info")
	if !logger.ValidLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: must be one of debug, info, warn, error", logLevel)
	}
	cfg.Logger.Level = logLevel

	cfg.DryRun = getEnvBool("DRY_RUN", false)

	return cfg, nil
}

func mustGetEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic(fmt.Sprintf("missing required environment variable: %s", key))
	}
	return value
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("invalid integer for environment variable %s: %q", key, value))
	}
	return result
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}
