package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestBuildSeriesNormalizesAndSplices(t *testing.T) {
	records := []models.HistoricRecord{
		{Year: "2023", Month: "12", Asset: "btc", Units: "1", USDValue: "1"},
		{Year: "2025", Month: "6", Asset: "btc", Units: "100", USDValue: "10.000.000"},
		{Year: "2025", Month: "6", Asset: "BTC", Units: "50", USDValue: "5.000.000"},
		{Year: "2025", Month: "7", Asset: "eth", Units: "1.000", USDValue: "3.500.000,50"},
		{Year: "2025", Month: "x", Asset: "eth", Units: "1", USDValue: "1"},
	}
	current := []models.ValuatedHolding{
		{HoldingRecord: models.HoldingRecord{Asset: "BTC", Units: 10}, USDValue: 1_000_000},
		{HoldingRecord: models.HoldingRecord{Asset: "BTC", Units: 5}, USDValue: 500_000},
		{HoldingRecord: models.HoldingRecord{Asset: "SOL", Units: 1}, USDValue: 200},
	}

	series := NewHistoricSplicer(0).BuildSeries(records, current)
	require.Len(t, series, 4)

	// sorted by asset then date
	assert.Equal(t, models.Asset("BTC"), series[0].Asset)
	assert.Equal(t, month(2025, time.June), series[0].Date)
	assert.Equal(t, 150.0, series[0].Units, "duplicate rows are summed")
	assert.Equal(t, 15_000_000.0, series[0].USDValue)
	assert.False(t, series[0].Synthetic)

	assert.Equal(t, month(2025, time.August), series[1].Date, "splice goes after the global last month")
	assert.Equal(t, 15.0, series[1].Units)
	assert.Equal(t, 1_500_000.0, series[1].USDValue)
	assert.True(t, series[1].Synthetic)

	assert.Equal(t, models.Asset("ETH"), series[2].Asset)
	assert.Equal(t, 3_500_000.5, series[2].USDValue)

	assert.Equal(t, models.Asset("SOL"), series[3].Asset)
	assert.Equal(t, month(2025, time.August), series[3].Date)
}

func TestBuildSeriesWithoutHistoryUsesCurrentMonth(t *testing.T) {
	s := NewHistoricSplicer(2024)
	s.now = func() time.Time { return time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC) }

	series := s.BuildSeries(nil, []models.ValuatedHolding{
		{HoldingRecord: models.HoldingRecord{Asset: "BTC", Units: 1}, USDValue: 100},
	})
	require.Len(t, series, 1)
	assert.Equal(t, month(2026, time.March), series[0].Date)

	assert.Empty(t, s.BuildSeries(nil, nil))
}

func TestDecomposeIdentity(t *testing.T) {
	cases := []struct{ u0, p0, u1, p1 float64 }{
		{100, 60000, 120, 65000},
		{100, 60000, 80, 50000},
		{0.5, 3.14159, 1234.5678, 2.71828},
		{10, 100, 10, 100},
		{0, 0, 50, 20},
	}
	for _, c := range cases {
		series := []models.HistoricPoint{
			{Date: month(2025, time.January), Asset: "BTC", Units: c.u0, USDValue: c.u0 * c.p0},
			{Date: month(2025, time.February), Asset: "BTC", Units: c.u1, USDValue: c.u1 * c.p1},
		}
		rows := Decompose(series)
		require.Len(t, rows, 1)
		r := rows[0]
		assert.InDelta(t, c.u1*c.p1-c.u0*c.p0, r.DeltaUSD, 1e-6)
		assert.InDelta(t, r.DeltaUSD, r.PriceEffect+r.QuantityEffect, 1e-6)
	}
}

func TestDecomposeEffects(t *testing.T) {
	series := []models.HistoricPoint{
		{Date: month(2025, time.February), Asset: "BTC", Units: 120, USDValue: 120 * 65000},
		{Date: month(2025, time.January), Asset: "BTC", Units: 100, USDValue: 100 * 60000},
		{Date: month(2025, time.January), Asset: "ETH", Units: 10, USDValue: 35000},
	}

	rows := Decompose(series)
	require.Len(t, rows, 1, "single-month assets produce no rows")
	assert.Equal(t, month(2025, time.February), rows[0].Date)
	assert.InDelta(t, 100*5000.0, rows[0].PriceEffect, 1e-6)
	assert.InDelta(t, 65000*20.0, rows[0].QuantityEffect, 1e-6)
}

func TestSummarizeHistoric(t *testing.T) {
	var series []models.HistoricPoint
	// 2024-01 .. 2025-03, BTC units grow by 1 per month, USD by 10 per month
	for i := 0; i < 15; i++ {
		d := month(2024, time.January).AddDate(0, i, 0)
		series = append(series, models.HistoricPoint{
			Date: d, Year: d.Year(), Month: int(d.Month()), Asset: "BTC",
			Units: float64(10 + i), USDValue: float64(100 + 10*i),
		})
	}
	series = append(series, models.HistoricPoint{Date: month(2025, time.March), Asset: "ETH", Units: 5, USDValue: 1000})

	t.Run("single asset", func(t *testing.T) {
		s := SummarizeHistoric(series, []models.Asset{"BTC"})
		require.NotNil(t, s.LatestDate)
		assert.Equal(t, month(2025, time.March), *s.LatestDate)
		assert.Equal(t, 240.0, s.LatestUSD)
		require.NotNil(t, s.PreviousUSD)
		assert.Equal(t, 230.0, *s.PreviousUSD)
		assert.InDelta(t, 10.0/230*100, *s.MonthlyUSDPct, 1e-9)

		// prior December is 2024-12 (index 11): USD 210
		assert.InDelta(t, 30.0/210*100, *s.YTDUSDPct, 1e-9)

		// last 12 months: 2024-04 (USD 130) .. 2025-03 (USD 240), 11 months apart
		assert.Equal(t, 11, s.CAGRMonths)
		assert.InDelta(t, 100*(math.Pow(240.0/130, 12.0/11)-1), *s.CAGRUSDPct, 1e-9)

		require.NotNil(t, s.LatestUnits)
		assert.Equal(t, 24.0, *s.LatestUnits)
		assert.InDelta(t, 1.0/23*100, *s.MonthlyUnitsPct, 1e-9)
	})

	t.Run("multi asset has no unit KPIs", func(t *testing.T) {
		s := SummarizeHistoric(series, nil)
		assert.Equal(t, []models.Asset{"BTC", "ETH"}, s.Assets)
		assert.Equal(t, 1240.0, s.LatestUSD)
		assert.Nil(t, s.LatestUnits)
		assert.Nil(t, s.MonthlyUnitsPct)
	})

	t.Run("no baseline", func(t *testing.T) {
		s := SummarizeHistoric(series[:1], []models.Asset{"BTC"})
		assert.Nil(t, s.PreviousDate)
		assert.Nil(t, s.MonthlyUSDPct)
		assert.Nil(t, s.YTDUSDPct)
		assert.Nil(t, s.CAGRUSDPct)
	})

	t.Run("empty", func(t *testing.T) {
		s := SummarizeHistoric(nil, nil)
		assert.Nil(t, s.LatestDate)
		assert.Zero(t, s.LatestUSD)
	})
}

func TestHistoricLoader(t *testing.T) {
	header := []string{"Year", "Month", "Crypto Asset", "Holdings (Unit)", "USD Value"}
	tables := &fakeTables{
		ranges: map[string][][]string{
			"historic_btc": {header, {"2025", "1", "BTC", "100", "9.000.000"}, {"2025", "2", "", "110", "10.000.000"}},
		},
		missing: map[string]bool{"historic_eth": true},
	}

	loader := NewHistoricLoader(tables, testCatalog(t), "", 0, nil)
	recs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "BTC", recs[1].Asset, "blank asset cell falls back to the table's asset")

	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tables.batchCalls, "second load is served from cache")
}

func TestParseCalendarInt(t *testing.T) {
	for raw, want := range map[string]int{"2024": 2024, " 7 ": 7, "2024.0": 2024} {
		got, err := parseCalendarInt(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := parseCalendarInt("7.5")
	assert.Error(t, err)
}
