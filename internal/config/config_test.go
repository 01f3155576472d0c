package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

func TestLoadDefaultsEnvOnly(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.Prices.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Prices.LedgerTTL)
	assert.Equal(t, 15*time.Minute, cfg.Historic.CacheTTL)
	assert.Equal(t, 2024, cfg.Historic.MinYear)
	assert.Equal(t, 8*time.Second, cfg.Market.Timeout)
	assert.Equal(t, 2, cfg.Market.Attempts)
	assert.Equal(t, "data/last_prices.json", cfg.Prices.StorePath)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Len(t, catalog.Assets(), 6)
	assert.Equal(t, 20_000_000.0, catalog.SupplyCap("BTC"))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CTT_PRICES_CACHE_TTL", "30m")
	t.Setenv("CTT_MARKET_API_KEY", "demo-key")

	cfg, err := Load("", true)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Prices.CacheTTL)
	assert.Equal(t, "demo-key", cfg.Market.APIKey)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
sheets:
  spreadsheet_id: sheet-123
assets:
  - symbol: btc
    coingecko_id: bitcoin
    default_price: 100000
    supply_cap: 21000000
  - symbol: eth
    coingecko_id: ethereum
    default_price: 3000
datco:
  btc: ["Strategy"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, []models.Asset{"BTC", "ETH"}, catalog.Assets())
	assert.Equal(t, []string{"Strategy"}, cfg.DATCOWhitelist()["BTC"])
}

func TestCatalogDuplicateAsset(t *testing.T) {
	cfg := Config{Assets: []AssetConfig{
		{Symbol: "BTC", CoinGeckoID: "bitcoin", SupplyCap: 20_000_000},
		{Symbol: "BTC", CoinGeckoID: "bitcoin-cash", SupplyCap: 21_000_000},
	}}

	_, err := cfg.Catalog()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicateAsset))
}
