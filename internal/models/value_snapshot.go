package models

import (
	"time"
)

// TreasurySnapshot is the current priced holdings table together with the
// price resolution it was valued at
type TreasurySnapshot struct {
	Holdings    []ValuatedHolding `json:"holdings"`
	Prices      PriceResolution   `json:"prices"`
	AssembledAt time.Time         `json:"assembled_at"`
}

// Filter returns a new snapshot restricted to the matching holdings
func (s *TreasurySnapshot) Filter(f HoldingFilter) *TreasurySnapshot {
	out := &TreasurySnapshot{Prices: s.Prices, AssembledAt: s.AssembledAt}
	for _, h := range s.Holdings {
		if f.Matches(h.HoldingRecord) {
			out.Holdings = append(out.Holdings, h)
		}
	}
	return out
}

// AssetTotals is the per-asset aggregate of a snapshot
type AssetTotals struct {
	Asset       Asset    `json:"crypto_asset"`
	Units       float64  `json:"holdings_units"`
	USDValue    float64  `json:"usd_value"`
	Entities    int      `json:"entities"`
	Dominance   float64  `json:"dominance"`              // share of total USD, 0..1
	SupplyShare *float64 `json:"supply_share,omitempty"` // units / supply cap, 0..1
}

// OverviewKPIs summarizes a snapshot
type OverviewKPIs struct {
	TotalUSD       float64       `json:"total_usd"`
	UniqueEntities int           `json:"unique_entities"`
	Assets         []AssetTotals `json:"assets"`
}

// GroupTotal is a USD total for one grouping key
type GroupTotal struct {
	Key        string  `json:"key"`
	USDValue   float64 `json:"usd_value"`
	Entities   int     `json:"entities"`
	Rows       int     `json:"rows"`
	AverageUSD float64 `json:"average_usd"`
	Share      float64 `json:"share"`
}

// ValueRange buckets a holding by its USD value
type ValueRange string

const (
	ValueRangeAll      ValueRange = "All"
	ValueRangeUpTo100M ValueRange = "0-100M"
	ValueRange100MTo1B ValueRange = "100M-1B"
	ValueRangeAbove1B  ValueRange = ">1B"
)

// Contains reports whether a USD value falls within the bucket
func (r ValueRange) Contains(usd float64) bool {
	switch r {
	case ValueRangeUpTo100M:
		return usd >= 0 && usd < 100e6
	case ValueRange100MTo1B:
		return usd >= 100e6 && usd < 1e9
	case ValueRangeAbove1B:
		return usd >= 1e9
	default:
		return true
	}
}

// Breakdown groups a snapshot by entity type and by country
type Breakdown struct {
	ByEntityType []GroupTotal `json:"by_entity_type"`
	ByCountry    []GroupTotal `json:"by_country"`
}

// RankingRow is one line of a top-N ranking
type RankingRow struct {
	Rank       int        `json:"rank"`
	EntityName string     `json:"entity_name"`
	EntityType EntityType `json:"entity_type"`
	Country    string     `json:"country"`
	Asset      Asset      `json:"crypto_asset,omitempty"`
	Units      float64    `json:"holdings_units"`
	USDValue   float64    `json:"usd_value"`
}

// EntitySnapshot is the entity-level view used for valuation metrics
type EntitySnapshot struct {
	EntityName string            `json:"entity_name"`
	EntityType EntityType        `json:"entity_type"`
	Country    string            `json:"country"`
	Ticker     *string           `json:"ticker"`
	CryptoNAV  float64           `json:"crypto_nav"`
	MarketCap  *float64          `json:"market_cap"`
	NAVByAsset map[Asset]float64 `json:"nav_by_asset"`
	MNAV       *float64          `json:"mnav"`
	PremiumPct *float64          `json:"premium_pct"`
}

// ValuationSummary aggregates entity snapshots
type ValuationSummary struct {
	Entities           int      `json:"entities"`
	EntitiesWithMcap   int      `json:"entities_with_market_cap"`
	TotalNAV           float64  `json:"total_nav"`
	TotalMarketCap     float64  `json:"total_market_cap"`
	ExposurePct        *float64 `json:"exposure_pct"`
	WeightedPremiumPct *float64 `json:"weighted_premium_pct"`
}

// MNAVStats summarizes the defined mNAV values of a set of entities
type MNAVStats struct {
	Count         int      `json:"count"`
	Median        *float64 `json:"median"`
	Mean          *float64 `json:"mean"`
	Max           *float64 `json:"max"`
	BelowOne      int      `json:"below_one"`
	BelowOneShare *float64 `json:"below_one_share"`
}

// SensitivityRow is the estimated equity impact of a price shock on one entity
type SensitivityRow struct {
	EntityName     string  `json:"entity_name"`
	CryptoNAV      float64 `json:"crypto_nav"`
	MarketCap      float64 `json:"market_cap"`
	ExposurePct    float64 `json:"exposure_pct"`
	DeltaNAV       float64 `json:"delta_nav"`
	DeltaEquityPct float64 `json:"delta_equity_pct"`
}
