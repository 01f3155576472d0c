package models

import (
	"time"
)

// PriceMap maps an asset to its USD price. A zero price means unpriced.
type PriceMap map[Asset]float64

// Clone returns an independent copy
func (p PriceMap) Clone() PriceMap {
	out := make(PriceMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Missing returns the assets without a positive price
func (p PriceMap) Missing(assets []Asset) []Asset {
	var missing []Asset
	for _, a := range assets {
		if p[a] <= 0 {
			missing = append(missing, a)
		}
	}
	return missing
}

// AssetPrice is a single price observation
type AssetPrice struct {
	Asset      Asset     `json:"asset"`
	USD        float64   `json:"usd"`
	ObservedAt time.Time `json:"observed_at"`
}

// LatestByAsset keeps the newest observation per asset
func LatestByAsset(observations []AssetPrice) map[Asset]AssetPrice {
	latest := make(map[Asset]AssetPrice, len(observations))
	for _, o := range observations {
		if cur, ok := latest[o.Asset]; !ok || o.ObservedAt.After(cur.ObservedAt) {
			latest[o.Asset] = o
		}
	}
	return latest
}

// LedgerEntry is a persisted row of the central price ledger
type LedgerEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Asset      string    `json:"asset" gorm:"not null;uniqueIndex:idx_ledger_asset_observed,priority:1"`
	PriceUSD   float64   `json:"price_usd" gorm:"not null"`
	ObservedAt time.Time `json:"observed_at" gorm:"not null;uniqueIndex:idx_ledger_asset_observed,priority:2"`
	Source     string    `json:"source"`
	BatchID    string    `json:"batch_id" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "price_ledger"
}

// PriceSource identifies the tier that served a price resolution
type PriceSource string

const (
	PriceSourceLedger   PriceSource = "ledger"
	PriceSourceLive     PriceSource = "live"
	PriceSourceFallback PriceSource = "fallback"
)

// PriceResolution is the outcome of one pass over the price fallback chain
type PriceResolution struct {
	Prices     PriceMap    `json:"prices"`
	Source     PriceSource `json:"source"`
	ResolvedAt time.Time   `json:"resolved_at"`
}
