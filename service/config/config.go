package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TrackedWallet is a wallet address we follow, with an optional human label.
// The set of tracked wallets is persisted in the wallets table; the seed list
// here is only consumed by `whaling wallet seed`.
type TrackedWallet struct {
	Address string
	Label   string
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	LogLevel string

	// Database configuration
	DatabaseURL string

	// Transaction source (Helius-style enhanced transactions API)
	HeliusAPIURL string
	HeliusAPIKey string

	// NATS configuration
	NATSURL string

	// Telegram notification channel
	TelegramBotToken string
	TelegramChatID   string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Polling configuration
	PollInterval time.Duration
	FetchLimit   int

	// Classification and filtering
	MinBuyValueUSD float64
	MaxTokenAge    time.Duration // 0 disables the buy-side token age filter
	SOLPriceUSD    float64       // static oracle estimate until a real feed exists

	// Seed list, "addr=label,addr2=label2,addr3" format
	TrackedWallets []TrackedWallet
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.HeliusAPIURL = getEnvOrDefault("HELIUS_API_URL", "https://api.helius.xyz")
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	if cfg.HeliusAPIKey == "" {
		errs = append(errs, fmt.Errorf("HELIUS_API_KEY is required"))
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == "" {
		errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set"))
	}

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "whaling-wallet-polling")

	pollInterval, err := parseDuration("POLL_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	fetchLimit, err := parseInt("FETCH_LIMIT", 50)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FetchLimit = fetchLimit
	}

	minBuy, err := parseFloat("MIN_BUY_VALUE_USD", 1000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MinBuyValueUSD = minBuy
	}

	maxAge, err := parseDuration("MAX_TOKEN_AGE", "0s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxTokenAge = maxAge
	}

	solPrice, err := parseFloat("SOL_PRICE_USD", 200)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SOLPriceUSD = solPrice
	}

	wallets, err := ParseTrackedWallets(os.Getenv("TRACKED_WALLETS"))
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TrackedWallets = wallets
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for process initialization where misconfiguration should halt startup.
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

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.HeliusAPIURL == "" {
		errs = append(errs, fmt.Errorf("HeliusAPIURL is required"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("PollInterval must be at least 1 second"))
	}

	if c.FetchLimit < 1 || c.FetchLimit > 1000 {
		errs = append(errs, fmt.Errorf("FetchLimit must be between 1 and 1000"))
	}

	if c.MinBuyValueUSD < 0 {
		errs = append(errs, fmt.Errorf("MinBuyValueUSD cannot be negative"))
	}

	if c.MaxTokenAge < 0 {
		errs = append(errs, fmt.Errorf("MaxTokenAge cannot be negative"))
	}

	if c.SOLPriceUSD <= 0 {
		errs = append(errs, fmt.Errorf("SOLPriceUSD must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ParseTrackedWallets parses the TRACKED_WALLETS seed list.
// Entries are comma-separated; each entry is "address" or "address=label".
func ParseTrackedWallets(raw string) ([]TrackedWallet, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	entries := strings.Split(raw, ",")
	wallets := make([]TrackedWallet, 0, len(entries))
	seen := make(map[string]struct{})

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		address, label, _ := strings.Cut(entry, "=")
		address = strings.TrimSpace(address)
		label = strings.TrimSpace(label)

		if address == "" {
			return nil, fmt.Errorf("TRACKED_WALLETS: entry %q has an empty address", entry)
		}
		if _, dup := seen[address]; dup {
			return nil, fmt.Errorf("TRACKED_WALLETS: duplicate address %q", address)
		}
		seen[address] = struct{}{}

		wallets = append(wallets, TrackedWallet{Address: address, Label: label})
	}

	return wallets, nil
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

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
