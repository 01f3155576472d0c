package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/database"
	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/sheets"
)

// fakeTables serves value ranges from memory. Ranges listed in missing fail both reads.
type fakeTables struct {
	ranges     map[string][][]string
	missing    map[string]bool
	batchErr   error
	batchCalls int
	getCalls   int
}

func (f *fakeTables) BatchGet(_ context.Context, ranges []string) ([]sheets.ValueRange, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	var out []sheets.ValueRange
	for _, r := range ranges {
		if f.missing[r] {
			return nil, errors.New("Unable to parse range: " + r)
		}
		out = append(out, sheets.ValueRange{Range: r, Values: f.ranges[r]})
	}
	return out, nil
}

func (f *fakeTables) Get(_ context.Context, rng string) (sheets.ValueRange, error) {
	f.getCalls++
	if f.missing[rng] {
		return sheets.ValueRange{}, errors.New("Unable to parse range: " + rng)
	}
	return sheets.ValueRange{Range: rng, Values: f.ranges[rng]}, nil
}

func TestSheetLedgerEntries(t *testing.T) {
	tables := &fakeTables{ranges: map[string][][]string{
		"prices": {
			{"asset", "usd", "timestamp"},
			{"btc", "115000.5", "1754006400"},
			{"eth", "3.712,25", "2025-08-01T00:00:00Z"},
			{"sol", "not-a-number", "1754006400"},
			{"xrp", "3", "yesterday"},
		},
	}}

	entries, err := NewSheetLedger(tables, "prices", nil).Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.Asset("BTC"), entries[0].Asset)
	assert.Equal(t, 115000.5, entries[0].USD)
	assert.Equal(t, time.Unix(1754006400, 0).UTC(), entries[0].ObservedAt)
	assert.Equal(t, 3712.25, entries[1].USD)
}

func TestSheetLedgerSchemaMismatch(t *testing.T) {
	tables := &fakeTables{ranges: map[string][][]string{
		"prices": {{"asset", "price"}, {"btc", "1"}},
	}}

	_, err := NewSheetLedger(tables, "prices", nil).Entries(context.Background())
	assert.True(t, errors.Is(err, models.ErrSchemaMismatch))
}

func TestLedgerRepositoryAppendAndLatest(t *testing.T) {
	db, err := database.Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer database.Close(db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()
	t0 := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	n, err := repo.Append(ctx, models.PriceMap{"BTC": 110000, "ETH": 3500}, t0, "coingecko")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Append(ctx, models.PriceMap{"BTC": 118000, "ETH": 0}, t0.Add(time.Hour), "coingecko")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unpriced assets are not recorded")

	// Replaying the same observation is ignored
	n, err = repo.Append(ctx, models.PriceMap{"BTC": 1}, t0.Add(time.Hour), "coingecko")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	entries, err := repo.Entries(ctx)
	require.NoError(t, err)
	latest := models.LatestByAsset(entries)
	assert.Equal(t, 118000.0, latest["BTC"].USD)
	assert.Equal(t, 3500.0, latest["ETH"].USD)

	history, err := repo.History(ctx, "BTC", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 118000.0, history[0].PriceUSD)
}
