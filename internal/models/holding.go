package models

import (
	"strings"
)

// EntityType categorizes a treasury holder
type EntityType string

const (
	EntityPublicCompany  EntityType = "Public Company"
	EntityPrivateCompany EntityType = "Private Company"
	EntityDAO            EntityType = "DAO"
	EntityFoundation     EntityType = "Foundation"
	EntityGovernment     EntityType = "Government"
	EntityOther          EntityType = "Other"
)

// CountryDecentralized is used for entities without a jurisdiction
const CountryDecentralized = "Decentralized"

// AllEntityTypes returns all entity categories
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityPublicCompany,
		EntityPrivateCompany,
		EntityDAO,
		EntityFoundation,
		EntityGovernment,
		EntityOther,
	}
}

// ParseEntityType maps a sheet value onto a known category.
// Matching is case-insensitive; unknown values map to Other.
func ParseEntityType(raw string) EntityType {
	s := strings.TrimSpace(raw)
	for _, t := range AllEntityTypes() {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return EntityOther
}

// HoldingRecord is one entity's reported holding of one asset
type HoldingRecord struct {
	EntityName string     `json:"entity_name"`
	EntityType EntityType `json:"entity_type"`
	Country    string     `json:"country"`
	Ticker     *string    `json:"ticker"`
	MarketCap  *float64   `json:"market_cap"`
	Asset      Asset      `json:"crypto_asset"`
	Units      float64    `json:"holdings_units"`
}

// ValuatedHolding is a HoldingRecord with its derived USD value and ratios.
// MNAV and PremiumPct are either both nil or both set.
type ValuatedHolding struct {
	HoldingRecord
	USDValue   float64  `json:"usd_value"`
	MNAV       *float64 `json:"mnav"`
	PremiumPct *float64 `json:"premium_pct"`
	TTMCRPct   *float64 `json:"ttmcr_pct"`
}

// HoldingFilter narrows a holdings table. Zero values match everything.
type HoldingFilter struct {
	Assets     []Asset    `json:"assets,omitempty"`
	EntityType EntityType `json:"entity_type,omitempty"`
	Country    string     `json:"country,omitempty"`
}

// Matches reports whether a record passes the filter
func (f HoldingFilter) Matches(h HoldingRecord) bool {
	if len(f.Assets) > 0 {
		found := false
		for _, a := range f.Assets {
			if a == h.Asset {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.EntityType != "" && f.EntityType != "All" && f.EntityType != h.EntityType {
		return false
	}
	if f.Country != "" && f.Country != "All" && !strings.EqualFold(f.Country, h.Country) {
		return false
	}
	return true
}
