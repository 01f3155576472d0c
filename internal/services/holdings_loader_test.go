package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

var holdingsHeader = []string{"Entity Name", "Entity Type", "Country", "Ticker", "Market Cap", "Crypto Asset", "Holdings (Unit)"}

func TestHoldingsLoaderBatch(t *testing.T) {
	tables := &fakeTables{ranges: map[string][][]string{
		"aggregated_btc_data": {
			holdingsHeader,
			{"Strategy", "Public Company", "United States", "MSTR", "95.000.000.000", "BTC", "629.376"},
			{"Bitcoin DAO", "DAO", "Decentralized", "", "", "btc", "12,5"},
			{"Broken Row", "Public Company", "Japan", "X", "1", "BTC", "abc"},
			{"Negative", "Public Company", "Japan", "X", "1", "BTC", "-5"},
		},
		"aggregated_eth_data": {
			holdingsHeader,
			{"SharpLink Gaming", "Public Company", "United States", "SBET", "n/a", "ETH", "521.939"},
		},
	}}

	loader := NewHoldingsLoader(tables, testCatalog(t), "", 0, nil)
	recs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, 1, tables.batchCalls)
	assert.Equal(t, 0, tables.getCalls)

	assert.Equal(t, "Strategy", recs[0].EntityName)
	assert.Equal(t, models.EntityPublicCompany, recs[0].EntityType)
	require.NotNil(t, recs[0].Ticker)
	assert.Equal(t, "MSTR", *recs[0].Ticker)
	require.NotNil(t, recs[0].MarketCap)
	assert.Equal(t, 95e9, *recs[0].MarketCap)
	assert.Equal(t, 629376.0, recs[0].Units)

	assert.Equal(t, models.Asset("BTC"), recs[1].Asset)
	assert.Nil(t, recs[1].Ticker)
	assert.Nil(t, recs[1].MarketCap, "missing market cap stays null")
	assert.Equal(t, 12.5, recs[1].Units)

	assert.Nil(t, recs[2].MarketCap, "unparsable market cap is null, not zero")
}

func TestHoldingsLoaderSkipsMissingTable(t *testing.T) {
	tables := &fakeTables{
		ranges: map[string][][]string{
			"aggregated_btc_data": {holdingsHeader, {"Strategy", "Public Company", "United States", "MSTR", "1", "BTC", "10"}},
		},
		missing: map[string]bool{"aggregated_eth_data": true},
	}

	recs, err := NewHoldingsLoader(tables, testCatalog(t), "", 0, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, tables.batchCalls)
	assert.Equal(t, 2, tables.getCalls)
}

func TestHoldingsLoaderSkipsSchemaMismatch(t *testing.T) {
	tables := &fakeTables{ranges: map[string][][]string{
		"aggregated_btc_data": {{"Entity Name", "Holdings (Unit)"}, {"Strategy", "10"}},
		"aggregated_eth_data": {holdingsHeader},
	}}

	recs, err := NewHoldingsLoader(tables, testCatalog(t), "", 0, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHoldingsLoaderStoreDown(t *testing.T) {
	tables := &fakeTables{
		batchErr: errors.New("timeout"),
		missing:  map[string]bool{"aggregated_btc_data": true, "aggregated_eth_data": true},
	}

	loader := NewHoldingsLoader(tables, testCatalog(t), "", 0, nil)

	recs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = readRanges(context.Background(), tables, []string{"aggregated_btc_data"}, zap.NewNop())
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))

	// outages are not cached
	calls := tables.batchCalls
	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, calls+1, tables.batchCalls)
}

func TestHoldingsLoaderCaches(t *testing.T) {
	tables := &fakeTables{ranges: map[string][][]string{
		"aggregated_btc_data": {holdingsHeader, {"Strategy", "Public Company", "United States", "MSTR", "1", "BTC", "10"}},
		"aggregated_eth_data": {holdingsHeader},
	}}
	loader := NewHoldingsLoader(tables, testCatalog(t), "", 0, nil)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	first[0].EntityName = "mutated"

	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Strategy", second[0].EntityName)
	assert.Equal(t, 1, tables.batchCalls)
}
