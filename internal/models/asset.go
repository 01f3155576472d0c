package models

import (
	"fmt"
	"strings"
)

// Asset is an upper-case crypto asset symbol such as BTC or ETH
type Asset string

// NormalizeAsset trims and upper-cases a raw asset code
func NormalizeAsset(raw string) Asset {
	return Asset(strings.ToUpper(strings.TrimSpace(raw)))
}

// Lower returns the lower-case form used in the price cache file and sheet range names
func (a Asset) Lower() string {
	return strings.ToLower(string(a))
}

// AssetSpec describes one supported asset
type AssetSpec struct {
	Symbol       Asset   `json:"symbol"`
	CoinGeckoID  string  `json:"coingecko_id"`
	DefaultPrice float64 `json:"default_price"`
	SupplyCap    float64 `json:"supply_cap,omitempty"` // 0 = no supply share reported
}

// AssetCatalog is the single source of truth for the supported asset set,
// default prices and supply caps. It is immutable after construction.
type AssetCatalog struct {
	specs  []AssetSpec
	bySym  map[Asset]AssetSpec
	byGeck map[string]Asset
}

// DefaultAssetSpecs is the built-in asset set used when nothing is configured
func DefaultAssetSpecs() []AssetSpec {
	return []AssetSpec{
		{Symbol: "BTC", CoinGeckoID: "bitcoin", DefaultPrice: 115000, SupplyCap: 20_000_000},
		{Symbol: "ETH", CoinGeckoID: "ethereum", DefaultPrice: 3500, SupplyCap: 120_000_000},
		{Symbol: "SOL", CoinGeckoID: "solana", DefaultPrice: 180, SupplyCap: 540_000_000},
		{Symbol: "XRP", CoinGeckoID: "ripple", DefaultPrice: 3},
		{Symbol: "SUI", CoinGeckoID: "sui", DefaultPrice: 3.5},
		{Symbol: "LTC", CoinGeckoID: "litecoin", DefaultPrice: 110},
	}
}

// NewAssetCatalog validates the specs and builds a catalog. A symbol or
// CoinGecko id that appears twice is rejected with ErrDuplicateAsset.
func NewAssetCatalog(specs []AssetSpec) (*AssetCatalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("asset catalog: no assets configured")
	}

	c := &AssetCatalog{
		specs:  make([]AssetSpec, 0, len(specs)),
		bySym:  make(map[Asset]AssetSpec, len(specs)),
		byGeck: make(map[string]Asset, len(specs)),
	}
	for _, s := range specs {
		s.Symbol = NormalizeAsset(string(s.Symbol))
		s.CoinGeckoID = strings.ToLower(strings.TrimSpace(s.CoinGeckoID))
		if s.Symbol == "" {
			return nil, fmt.Errorf("asset catalog: empty symbol")
		}
		if _, dup := c.bySym[s.Symbol]; dup {
			return nil, fmt.Errorf("%w: symbol %s", ErrDuplicateAsset, s.Symbol)
		}
		if s.CoinGeckoID != "" {
			if other, dup := c.byGeck[s.CoinGeckoID]; dup {
				return nil, fmt.Errorf("%w: coingecko id %q used by %s and %s", ErrDuplicateAsset, s.CoinGeckoID, other, s.Symbol)
			}
			c.byGeck[s.CoinGeckoID] = s.Symbol
		}
		c.bySym[s.Symbol] = s
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// MustAssetCatalog is NewAssetCatalog for static tables known to be valid
func MustAssetCatalog(specs []AssetSpec) *AssetCatalog {
	c, err := NewAssetCatalog(specs)
	if err != nil {
		panic(err)
	}
	return c
}

// Assets returns the supported symbols in configuration order
func (c *AssetCatalog) Assets() []Asset {
	out := make([]Asset, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Symbol
	}
	return out
}

// Specs returns a copy of the configured specs
func (c *AssetCatalog) Specs() []AssetSpec {
	return append([]AssetSpec(nil), c.specs...)
}

func (c *AssetCatalog) Has(a Asset) bool {
	_, ok := c.bySym[a]
	return ok
}

func (c *AssetCatalog) Spec(a Asset) (AssetSpec, bool) {
	s, ok := c.bySym[a]
	return s, ok
}

// AssetForCoinGeckoID maps a CoinGecko id back to its symbol
func (c *AssetCatalog) AssetForCoinGeckoID(id string) (Asset, bool) {
	a, ok := c.byGeck[strings.ToLower(id)]
	return a, ok
}

// DefaultPrices returns the built-in fallback price table
func (c *AssetCatalog) DefaultPrices() PriceMap {
	out := make(PriceMap, len(c.specs))
	for _, s := range c.specs {
		out[s.Symbol] = s.DefaultPrice
	}
	return out
}

// SupplyCap returns the reference supply for an asset, or 0 when none is configured
func (c *AssetCatalog) SupplyCap(a Asset) float64 {
	return c.bySym[a].SupplyCap
}
