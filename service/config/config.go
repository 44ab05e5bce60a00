package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL string

	// Pricing service configuration (Jupiter-compatible API)
	PriceAPIURL   string
	PriceAPIRPS   int // request budget per second for the pricing client
	PriceAPIBurst int

	// Token directory configuration
	CatalogAllURL          string
	CatalogFeaturedURL     string
	CatalogRefreshInterval time.Duration

	// Pool creation configuration
	CpmmProgramID            string
	MetadataProgramID        string
	AmmConfigID              uint64
	PriorityFeeMicroLamports uint64

	// Media hosting configuration
	MediaHostURL string

	// URL shortener configuration
	ShortenerURL string

	// Signing wallet (optional; empty disables pool creation and swap execution)
	WalletKeypairPath string

	// NATS configuration (optional; empty disables event publishing)
	NATSURL string
}

const (
	defaultPriceAPIURL        = "https://superswap.fomo3d.fun"
	defaultCatalogAllURL      = "https://cache.jup.ag/all-tokens"
	defaultCatalogFeaturedURL = "https://cache.jup.ag/top-tokens"
	defaultCpmmProgramID      = "CPMMQ1ELcDDe1DCbMw9YNE1n2MiMbQZgKQYBmZJGBFXh"
	defaultMetadataProgramID  = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	defaultShortenerURL       = "https://tinyurl.com/api-create.php"
	defaultMediaHostURL       = "https://superswap.fomo3d.fun/api/upload"
)

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	// Pricing service configuration
	cfg.PriceAPIURL = getEnvOrDefault("PRICE_API_URL", defaultPriceAPIURL)

	rps, err := parseInt("PRICE_API_RPS", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PriceAPIRPS = rps
	}

	burst, err := parseInt("PRICE_API_BURST", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PriceAPIBurst = burst
	}

	// Token directory configuration
	cfg.CatalogAllURL = getEnvOrDefault("CATALOG_ALL_URL", defaultCatalogAllURL)
	cfg.CatalogFeaturedURL = getEnvOrDefault("CATALOG_FEATURED_URL", defaultCatalogFeaturedURL)

	refreshInterval, err := parseDuration("CATALOG_REFRESH_INTERVAL", "5m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.CatalogRefreshInterval = refreshInterval
	}

	// Pool creation configuration
	cfg.CpmmProgramID = getEnvOrDefault("CPMM_PROGRAM_ID", defaultCpmmProgramID)
	cfg.MetadataProgramID = getEnvOrDefault("METADATA_PROGRAM_ID", defaultMetadataProgramID)

	configID, err := parseUint("AMM_CONFIG_ID", 0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.AmmConfigID = configID
	}

	priorityFee, err := parseUint("PRIORITY_FEE_MICRO_LAMPORTS", 333333)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PriorityFeeMicroLamports = priorityFee
	}

	// Media hosting configuration
	cfg.MediaHostURL = getEnvOrDefault("MEDIA_HOST_URL", defaultMediaHostURL)

	// URL shortener configuration
	cfg.ShortenerURL = getEnvOrDefault("SHORTENER_URL", defaultShortenerURL)

	// Signing wallet (optional)
	cfg.WalletKeypairPath = os.Getenv("WALLET_KEYPAIR_PATH")

	// NATS configuration (optional)
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Return all validation errors collected so far before structural checks
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.PriceAPIURL == "" {
		errs = append(errs, fmt.Errorf("PriceAPIURL is required"))
	}

	if c.CatalogAllURL == "" {
		errs = append(errs, fmt.Errorf("CatalogAllURL is required"))
	}

	if c.CatalogFeaturedURL == "" {
		errs = append(errs, fmt.Errorf("CatalogFeaturedURL is required"))
	}

	if c.CatalogAllURL != "" && c.CatalogAllURL == c.CatalogFeaturedURL {
		errs = append(errs, fmt.Errorf("CatalogAllURL and CatalogFeaturedURL must be different"))
	}

	if c.CatalogRefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("CatalogRefreshInterval must be at least 1 second"))
	}

	if c.CpmmProgramID == "" {
		errs = append(errs, fmt.Errorf("CpmmProgramID is required"))
	}

	if c.MetadataProgramID == "" {
		errs = append(errs, fmt.Errorf("MetadataProgramID is required"))
	}

	if c.PriceAPIRPS < 1 {
		errs = append(errs, fmt.Errorf("PriceAPIRPS must be at least 1"))
	}

	if c.PriceAPIBurst < c.PriceAPIRPS {
		errs = append(errs, fmt.Errorf("PriceAPIBurst (%d) cannot be less than PriceAPIRPS (%d)",
			c.PriceAPIBurst, c.PriceAPIRPS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}
