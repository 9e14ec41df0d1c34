package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/whaling")
	t.Setenv("HELIUS_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.helius.xyz", cfg.HeliusAPIURL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "whaling-wallet-polling", cfg.TemporalTaskQueue)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 50, cfg.FetchLimit)
	assert.Equal(t, 1000.0, cfg.MinBuyValueUSD)
	assert.Equal(t, time.Duration(0), cfg.MaxTokenAge)
	assert.Equal(t, 200.0, cfg.SOLPriceUSD)
	assert.Empty(t, cfg.TrackedWallets)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HELIUS_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "HELIUS_API_KEY is required")
}

func TestLoad_TelegramChatIDRequiredWithToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID is required")
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("FETCH_LIMIT", "100")
	t.Setenv("MIN_BUY_VALUE_USD", "250.5")
	t.Setenv("MAX_TOKEN_AGE", "72h")
	t.Setenv("SOL_PRICE_USD", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 100, cfg.FetchLimit)
	assert.Equal(t, 250.5, cfg.MinBuyValueUSD)
	assert.Equal(t, 72*time.Hour, cfg.MaxTokenAge)
	assert.Equal(t, 150.0, cfg.SOLPriceUSD)
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("FETCH_LIMIT", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
	assert.Contains(t, err.Error(), "FETCH_LIMIT")
}

func TestValidate_Bounds(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:       "postgres://localhost/whaling",
			HeliusAPIURL:      "https://api.helius.xyz",
			TemporalHost:      "localhost:7233",
			TemporalNamespace: "default",
			TemporalTaskQueue: "whaling-wallet-polling",
			PollInterval:      30 * time.Second,
			FetchLimit:        50,
			MinBuyValueUSD:    1000,
			SOLPriceUSD:       200,
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"sub-second poll interval", func(c *Config) { c.PollInterval = 500 * time.Millisecond }, "PollInterval"},
		{"fetch limit too small", func(c *Config) { c.FetchLimit = 0 }, "FetchLimit"},
		{"fetch limit too large", func(c *Config) { c.FetchLimit = 1001 }, "FetchLimit"},
		{"negative buy threshold", func(c *Config) { c.MinBuyValueUSD = -1 }, "MinBuyValueUSD"},
		{"negative token age", func(c *Config) { c.MaxTokenAge = -time.Hour }, "MaxTokenAge"},
		{"zero oracle price", func(c *Config) { c.SOLPriceUSD = 0 }, "SOLPriceUSD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestParseTrackedWallets(t *testing.T) {
	wallets, err := ParseTrackedWallets("addr1=smart money, addr2 , addr3=dip buyer")
	require.NoError(t, err)

	require.Len(t, wallets, 3)
	assert.Equal(t, TrackedWallet{Address: "addr1", Label: "smart money"}, wallets[0])
	assert.Equal(t, TrackedWallet{Address: "addr2"}, wallets[1])
	assert.Equal(t, TrackedWallet{Address: "addr3", Label: "dip buyer"}, wallets[2])
}

func TestParseTrackedWallets_Empty(t *testing.T) {
	wallets, err := ParseTrackedWallets("   ")
	require.NoError(t, err)
	assert.Nil(t, wallets)
}

func TestParseTrackedWallets_Errors(t *testing.T) {
	_, err := ParseTrackedWallets("addr1,addr1=again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate address")

	_, err = ParseTrackedWallets("=no address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty address")
}
