package models

import (
	"time"
)

// HistoricRecord is a raw row of a monthly historic table, before normalization
type HistoricRecord struct {
	Year     string
	Month    string
	Asset    string
	Units    string
	USDValue string
}

// HistoricPoint is the aggregated position of one asset at the start of a month
type HistoricPoint struct {
	Date      time.Time `json:"date"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Asset     Asset     `json:"crypto_asset"`
	Units     float64   `json:"holdings_units"`
	USDValue  float64   `json:"usd_value"`
	Synthetic bool      `json:"synthetic,omitempty"` // spliced from the live snapshot
}

// Decomposition splits one month-over-month USD change of an asset
type Decomposition struct {
	Date           time.Time `json:"date"`
	Asset          Asset     `json:"crypto_asset"`
	DeltaUSD       float64   `json:"delta_usd"`
	PriceEffect    float64   `json:"price_effect"`
	QuantityEffect float64   `json:"quantity_effect"`
}

// HistoricSummary holds period-over-period KPIs of a series.
// Unit fields are only populated when the series covers a single asset.
type HistoricSummary struct {
	Assets        []Asset    `json:"assets"`
	LatestDate    *time.Time `json:"latest_date"`
	PreviousDate  *time.Time `json:"previous_date"`
	LatestUSD     float64    `json:"latest_usd"`
	PreviousUSD   *float64   `json:"previous_usd"`
	MonthlyUSDPct *float64   `json:"monthly_change_usd_pct"`
	YTDUSDPct     *float64   `json:"ytd_change_usd_pct"`
	CAGRUSDPct    *float64   `json:"cagr_usd_pct"`
	CAGRMonths    int        `json:"cagr_months"`

	LatestUnits     *float64 `json:"latest_units,omitempty"`
	MonthlyUnitsPct *float64 `json:"monthly_change_units_pct,omitempty"`
	YTDUnitsPct     *float64 `json:"ytd_change_units_pct,omitempty"`
	CAGRUnitsPct    *float64 `json:"cagr_units_pct,omitempty"`
}
