package services

import (
	"github.com/codyseavey/treasury-tracker/internal/models"
)

// AttachValues prices every holding and derives its ratios. The input is not
// modified; each output row carries a copy of its record.
//
// A missing or zero price values the holding at 0. mNAV and premium need a
// positive market cap and a positive USD value, TTMCR only a positive market
// cap, so an unpriced holding with a market cap reports a TTMCR of exactly 0.
func AttachValues(holdings []models.HoldingRecord, prices models.PriceMap) []models.ValuatedHolding {
	out := make([]models.ValuatedHolding, len(holdings))
	for i, h := range holdings {
		out[i] = valueHolding(h, prices[h.Asset])
	}
	return out
}

func valueHolding(h models.HoldingRecord, price float64) models.ValuatedHolding {
	v := models.ValuatedHolding{HoldingRecord: h}
	if h.MarketCap != nil {
		mcap := *h.MarketCap
		v.MarketCap = &mcap
	}
	if h.Ticker != nil {
		ticker := *h.Ticker
		v.Ticker = &ticker
	}

	if price > 0 {
		v.USDValue = h.Units * price
	}

	if v.MarketCap == nil || *v.MarketCap <= 0 {
		return v
	}
	mcap := *v.MarketCap

	v.TTMCRPct = ptr(v.USDValue / mcap * 100)
	if v.USDValue > 0 {
		mnav := mcap / v.USDValue
		v.MNAV = ptr(mnav)
		v.PremiumPct = ptr((mnav - 1) * 100)
	}
	return v
}

// TotalUSD sums the USD value of a valuated table
func TotalUSD(rows []models.ValuatedHolding) float64 {
	var total float64
	for _, r := range rows {
		total += r.USDValue
	}
	return total
}

// RoundForDisplay returns a copy of rows with USD value and ratios rounded to
// two decimals. Aggregates must be computed on the unrounded rows.
func RoundForDisplay(rows []models.ValuatedHolding) []models.ValuatedHolding {
	out := make([]models.ValuatedHolding, len(rows))
	for i, r := range rows {
		r.USDValue = RoundDisplay(r.USDValue)
		r.MNAV = RoundDisplayPtr(r.MNAV)
		r.PremiumPct = RoundDisplayPtr(r.PremiumPct)
		r.TTMCRPct = RoundDisplayPtr(r.TTMCRPct)
		out[i] = r
	}
	return out
}
