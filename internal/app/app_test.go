package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/config"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("", true)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.DB.Path = filepath.Join(dir, "ledger.db")
	cfg.Prices.StorePath = filepath.Join(dir, "last_prices.json")
	return cfg
}

func TestNewSheetLedgerSkipsDatabase(t *testing.T) {
	a, err := New(testConfig(t), nil, false)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.LedgerRepo)
	assert.NotNil(t, a.Snapshots)

	_, err = a.PriceWorker()
	assert.Error(t, err)
}

func TestNewUnknownLedgerSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prices.LedgerSource = "redis"

	_, err := New(cfg, nil, false)
	assert.ErrorContains(t, err, "ledger_source")
}

func TestLedgerUpdaterFeedsResolver(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":101000},"ethereum":{"usd":3900},"solana":{"usd":190},
			"ripple":{"usd":2.5},"sui":{"usd":3.1},"litecoin":{"usd":95}}`))
	}))
	defer market.Close()

	cfg := testConfig(t)
	cfg.Prices.LedgerSource = LedgerSourceDB
	cfg.Market.BaseURL = market.URL
	cfg.Market.Attempts = 1

	a, err := New(cfg, nil, false)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.LedgerRepo)

	worker, err := a.PriceWorker()
	require.NoError(t, err)
	n, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	market.Close()
	res := a.Resolver.Resolve(context.Background())
	assert.Equal(t, models.PriceSourceLedger, res.Source)
	assert.Equal(t, 101000.0, res.Prices["BTC"])
}
