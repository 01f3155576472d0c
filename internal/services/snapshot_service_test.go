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
)

type staticHoldings struct {
	rows []models.HoldingRecord
	err  error
}

func (s staticHoldings) Load(context.Context) ([]models.HoldingRecord, error) { return s.rows, s.err }

type staticPrices models.PriceResolution

func (s staticPrices) Resolve(context.Context) models.PriceResolution { return models.PriceResolution(s) }

type staticHistoric struct {
	rows []models.HistoricRecord
	err  error
}

func (s staticHistoric) Load(context.Context) ([]models.HistoricRecord, error) { return s.rows, s.err }

func TestSnapshotServiceSnapshot(t *testing.T) {
	holdings := staticHoldings{rows: []models.HoldingRecord{
		{EntityName: "A", Asset: "BTC", Units: 10, MarketCap: ptr(1_000_000)},
		{EntityName: "B", Asset: "BTC", Units: 5, MarketCap: ptr(500_000)},
	}}
	prices := staticPrices{Prices: models.PriceMap{"BTC": 100_000}, Source: models.PriceSourceLive}

	svc := NewSnapshotService(holdings, prices, nil, nil, nil)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Holdings, 2)
	assert.Equal(t, models.PriceSourceLive, snap.Prices.Source)
	assert.Equal(t, 1_500_000.0, TotalUSD(snap.Holdings))
	assert.False(t, svc.LastSnapshot().IsZero())
}

func TestSnapshotServiceEmptyAndFailing(t *testing.T) {
	prices := staticPrices{Prices: models.PriceMap{}}

	snap, err := NewSnapshotService(staticHoldings{}, prices, nil, nil, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Holdings)
	assert.Empty(t, snap.Holdings)

	_, err = NewSnapshotService(staticHoldings{err: models.ErrSourceUnavailable}, prices, nil, nil, nil).Snapshot(context.Background())
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))
}

func TestSnapshotServiceSeries(t *testing.T) {
	current := []models.ValuatedHolding{{HoldingRecord: models.HoldingRecord{Asset: "BTC", Units: 2}, USDValue: 200}}

	historic := staticHistoric{rows: []models.HistoricRecord{
		{Year: "2025", Month: "9", Asset: "BTC", Units: "1", USDValue: "90"},
	}}
	series := NewSnapshotService(staticHoldings{}, staticPrices{}, historic, nil, nil).Series(context.Background(), current)
	require.Len(t, series, 2)
	assert.Equal(t, month(2025, time.October), series[1].Date)

	broken := staticHistoric{err: models.ErrSourceUnavailable}
	series = NewSnapshotService(staticHoldings{}, staticPrices{}, broken, nil, nil).Series(context.Background(), current)
	require.Len(t, series, 1, "history outage keeps the live point")
	assert.True(t, series[0].Synthetic)
}

func TestPriceWorkerRunOnce(t *testing.T) {
	db, err := database.Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer database.Close(db)

	repo := NewLedgerRepository(db)
	market := &fakeMarket{prices: models.PriceMap{"BTC": 120_000, "ETH": 4_000}}
	w := NewPriceWorker(testCatalog(t), market, repo, "", nil)
	w.now = func() time.Time { return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC) }

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := repo.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120_000.0, models.LatestByAsset(entries)["BTC"].USD)

	market.err = errors.New("rate limited")
	_, err = w.RunOnce(context.Background())
	require.Error(t, err)

	status := w.GetStatus()
	assert.Equal(t, 2, status.Runs)
	assert.Equal(t, 2, status.RowsWrittenTotal)
	assert.Contains(t, status.LastError, "rate limited")
	assert.Equal(t, time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC), status.LastSuccessTime)
}

func TestLedgerFeedsResolver(t *testing.T) {
	db, err := database.Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer database.Close(db)

	repo := NewLedgerRepository(db)
	w := NewPriceWorker(testCatalog(t), &fakeMarket{prices: models.PriceMap{"BTC": 1, "ETH": 2}}, repo, "", nil)
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)

	market := &fakeMarket{err: errors.New("unused")}
	res := NewPriceResolver(testCatalog(t), repo, market, newCountingStore(t), PriceResolverOptions{}, nil).Resolve(context.Background())
	assert.Equal(t, models.PriceSourceLedger, res.Source)
	assert.Equal(t, models.PriceMap{"BTC": 1, "ETH": 2}, res.Prices)
	assert.Equal(t, int32(0), market.calls.Load())
}
