package models

import (
	"errors"
	"testing"
)

func TestNewAssetCatalogRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		specs []AssetSpec
	}{
		{
			name: "Same symbol twice",
			specs: []AssetSpec{
				{Symbol: "BTC", CoinGeckoID: "bitcoin", SupplyCap: 20_000_000},
				{Symbol: "BTC", CoinGeckoID: "bitcoin-2", SupplyCap: 21_000_000},
			},
		},
		{
			name: "Symbol differs only by case",
			specs: []AssetSpec{
				{Symbol: "eth", CoinGeckoID: "ethereum"},
				{Symbol: "ETH", CoinGeckoID: "ether"},
			},
		},
		{
			name: "Shared CoinGecko id",
			specs: []AssetSpec{
				{Symbol: "BTC", CoinGeckoID: "bitcoin"},
				{Symbol: "WBTC", CoinGeckoID: "bitcoin"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssetCatalog(tt.specs)
			if !errors.Is(err, ErrDuplicateAsset) {
				t.Errorf("NewAssetCatalog() error = %v, want ErrDuplicateAsset", err)
			}
		})
	}
}

func TestNewAssetCatalogEmpty(t *testing.T) {
	if _, err := NewAssetCatalog(nil); err == nil {
		t.Error("expected error for empty catalog")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := MustAssetCatalog(DefaultAssetSpecs())

	assets := c.Assets()
	want := []Asset{"BTC", "ETH", "SOL", "XRP", "SUI", "LTC"}
	if len(assets) != len(want) {
		t.Fatalf("Assets() returned %d assets, want %d", len(assets), len(want))
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Errorf("Assets()[%d] = %s, want %s", i, assets[i], want[i])
		}
	}

	if got := c.SupplyCap("ETH"); got != 120_000_000 {
		t.Errorf("SupplyCap(ETH) = %v, want 120000000", got)
	}
	if got := c.SupplyCap("XRP"); got != 0 {
		t.Errorf("SupplyCap(XRP) = %v, want 0", got)
	}
	if a, ok := c.AssetForCoinGeckoID("Ripple"); !ok || a != "XRP" {
		t.Errorf("AssetForCoinGeckoID(Ripple) = %s, %v", a, ok)
	}
	if got := c.DefaultPrices()["BTC"]; got != 115000 {
		t.Errorf("DefaultPrices()[BTC] = %v, want 115000", got)
	}
}

func TestPriceMapMissing(t *testing.T) {
	p := PriceMap{"BTC": 100000, "ETH": 0}
	missing := p.Missing([]Asset{"BTC", "ETH", "SOL"})
	if len(missing) != 2 || missing[0] != "ETH" || missing[1] != "SOL" {
		t.Errorf("Missing() = %v, want [ETH SOL]", missing)
	}
}
