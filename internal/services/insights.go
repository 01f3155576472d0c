package services

import (
	"sort"
	"strings"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// Overview computes headline totals and the per-asset split, in catalog order
func Overview(rows []models.ValuatedHolding, catalog *models.AssetCatalog) models.OverviewKPIs {
	total := TotalUSD(rows)
	kpis := models.OverviewKPIs{
		TotalUSD:       total,
		UniqueEntities: countEntities(rows),
		Assets:         []models.AssetTotals{},
	}

	byAsset := make(map[models.Asset]*models.AssetTotals)
	names := make(map[models.Asset]map[string]bool)
	for _, r := range rows {
		t, ok := byAsset[r.Asset]
		if !ok {
			t = &models.AssetTotals{Asset: r.Asset}
			byAsset[r.Asset] = t
			names[r.Asset] = make(map[string]bool)
		}
		t.Units += r.Units
		t.USDValue += r.USDValue
		names[r.Asset][r.EntityName] = true
	}

	order := catalog.Assets()
	for a := range byAsset {
		if !catalog.Has(a) {
			order = append(order, a)
		}
	}
	for _, a := range order {
		t, ok := byAsset[a]
		if !ok {
			continue
		}
		t.Entities = len(names[a])
		if total > 0 {
			t.Dominance = t.USDValue / total
		}
		if supply := catalog.SupplyCap(a); supply > 0 {
			t.SupplyShare = ptr(t.Units / supply)
		}
		kpis.Assets = append(kpis.Assets, *t)
	}
	return kpis
}

// BreakdownByGroup totals USD by entity type and by country. Rows outside
// the value range are dropped first.
func BreakdownByGroup(rows []models.ValuatedHolding, vr models.ValueRange) models.Breakdown {
	kept := make([]models.ValuatedHolding, 0, len(rows))
	for _, r := range rows {
		if vr.Contains(r.USDValue) {
			kept = append(kept, r)
		}
	}
	return models.Breakdown{
		ByEntityType: groupTotals(kept, func(r models.ValuatedHolding) string { return string(r.EntityType) }),
		ByCountry:    groupTotals(kept, func(r models.ValuatedHolding) string { return r.Country }),
	}
}

func groupTotals(rows []models.ValuatedHolding, key func(models.ValuatedHolding) string) []models.GroupTotal {
	total := TotalUSD(rows)
	groups := make(map[string]*models.GroupTotal)
	names := make(map[string]map[string]bool)
	for _, r := range rows {
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &models.GroupTotal{Key: k}
			groups[k] = g
			names[k] = make(map[string]bool)
		}
		g.USDValue += r.USDValue
		g.Rows++
		names[k][r.EntityName] = true
	}

	out := make([]models.GroupTotal, 0, len(groups))
	for k, g := range groups {
		g.Entities = len(names[k])
		g.AverageUSD = g.USDValue / float64(g.Rows)
		if total > 0 {
			g.Share = g.USDValue / total
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].USDValue != out[j].USDValue {
			return out[i].USDValue > out[j].USDValue
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Rankings lists the top entities by USD value or by units. Units of
// different assets do not add up, so a units ranking over more than one
// asset is served by USD instead; the measure actually used is returned.
func Rankings(rows []models.ValuatedHolding, by models.Measure, topN int) ([]models.RankingRow, models.Measure) {
	if by == models.MeasureUnits && len(distinctAssets(rows)) > 1 {
		by = models.MeasureUSD
	}

	index := make(map[string]int)
	var out []models.RankingRow
	assets := make(map[string]map[models.Asset]bool)
	for _, r := range rows {
		i, ok := index[r.EntityName]
		if !ok {
			i = len(out)
			index[r.EntityName] = i
			out = append(out, models.RankingRow{
				EntityName: r.EntityName,
				EntityType: r.EntityType,
				Country:    r.Country,
			})
			assets[r.EntityName] = make(map[models.Asset]bool)
		}
		out[i].Units += r.Units
		out[i].USDValue += r.USDValue
		assets[r.EntityName][r.Asset] = true
	}
	for i := range out {
		if held := assets[out[i].EntityName]; len(held) == 1 {
			for a := range held {
				out[i].Asset = a
			}
		}
	}

	value := func(r models.RankingRow) float64 {
		if by == models.MeasureUnits {
			return r.Units
		}
		return r.USDValue
	}
	sort.SliceStable(out, func(i, j int) bool {
		if value(out[i]) != value(out[j]) {
			return value(out[i]) > value(out[j])
		}
		return out[i].EntityName < out[j].EntityName
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, by
}

// EntitySnapshots collapses holdings to one row per entity: Crypto-NAV is the
// summed USD value, market cap the largest reported one. Sorted by NAV, largest first.
func EntitySnapshots(rows []models.ValuatedHolding) []models.EntitySnapshot {
	index := make(map[string]int)
	var out []models.EntitySnapshot
	for _, r := range rows {
		i, ok := index[r.EntityName]
		if !ok {
			i = len(out)
			index[r.EntityName] = i
			out = append(out, models.EntitySnapshot{
				EntityName: r.EntityName,
				EntityType: r.EntityType,
				Country:    r.Country,
				NAVByAsset: make(map[models.Asset]float64),
			})
		}
		s := &out[i]
		s.CryptoNAV += r.USDValue
		s.NAVByAsset[r.Asset] += r.USDValue
		if s.Ticker == nil && r.Ticker != nil {
			ticker := *r.Ticker
			s.Ticker = &ticker
		}
		if r.MarketCap != nil && (s.MarketCap == nil || *r.MarketCap > *s.MarketCap) {
			s.MarketCap = ptr(*r.MarketCap)
		}
	}

	for i := range out {
		s := &out[i]
		if s.MarketCap != nil && *s.MarketCap > 0 && s.CryptoNAV > 0 {
			mnav := *s.MarketCap / s.CryptoNAV
			s.MNAV = ptr(mnav)
			s.PremiumPct = ptr((mnav - 1) * 100)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CryptoNAV > out[j].CryptoNAV })
	return out
}

// SummarizeValuation aggregates entities that report a positive market cap.
// The weighted premium only counts entities whose premium is defined.
func SummarizeValuation(snaps []models.EntitySnapshot) models.ValuationSummary {
	sum := models.ValuationSummary{Entities: len(snaps)}

	var premiumWeighted, premiumWeight float64
	for _, s := range snaps {
		if s.MarketCap == nil || *s.MarketCap <= 0 {
			continue
		}
		sum.EntitiesWithMcap++
		sum.TotalNAV += s.CryptoNAV
		sum.TotalMarketCap += *s.MarketCap
		if s.PremiumPct != nil {
			premiumWeighted += *s.PremiumPct * *s.MarketCap
			premiumWeight += *s.MarketCap
		}
	}

	if sum.TotalMarketCap > 0 {
		sum.ExposurePct = ptr(sum.TotalNAV / sum.TotalMarketCap * 100)
	}
	if premiumWeight > 0 {
		sum.WeightedPremiumPct = ptr(premiumWeighted / premiumWeight)
	}
	return sum
}

// MNAVBenchmark selects the topN entities by Crypto-NAV among those with a
// defined mNAV (after dropping values above maxMNAV, when set) and returns
// them with their statistics
func MNAVBenchmark(snaps []models.EntitySnapshot, topN int, maxMNAV *float64) ([]models.EntitySnapshot, models.MNAVStats) {
	selected := make([]models.EntitySnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.MNAV == nil {
			continue
		}
		if maxMNAV != nil && *s.MNAV > *maxMNAV {
			continue
		}
		selected = append(selected, s)
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].CryptoNAV > selected[j].CryptoNAV })
	if topN > 0 && len(selected) > topN {
		selected = selected[:topN]
	}

	values := make([]float64, len(selected))
	for i, s := range selected {
		values[i] = *s.MNAV
	}
	return selected, mnavStats(values)
}

func mnavStats(values []float64) models.MNAVStats {
	stats := models.MNAVStats{Count: len(values)}
	if len(values) == 0 {
		return stats
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
		if v < 1 {
			stats.BelowOne++
		}
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	stats.Median = ptr(median)
	stats.Mean = ptr(total / float64(n))
	stats.Max = ptr(sorted[n-1])
	stats.BelowOneShare = ptr(float64(stats.BelowOne) / float64(n))
	return stats
}

// FilterDATCO keeps holdings of entities whitelisted as treasury companies
// for any of the assets present in rows. Names are matched case-insensitively.
func FilterDATCO(rows []models.ValuatedHolding, whitelist map[models.Asset][]string) []models.ValuatedHolding {
	allowed := make(map[string]bool)
	for _, a := range distinctAssets(rows) {
		for _, name := range whitelist[a] {
			allowed[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}

	out := make([]models.ValuatedHolding, 0, len(rows))
	for _, r := range rows {
		if allowed[strings.ToLower(strings.TrimSpace(r.EntityName))] {
			out = append(out, r)
		}
	}
	return out
}

// Sensitivity estimates the equity impact of per-asset price shocks
// (fractions, -0.05 = -5%) assuming Crypto-NAV passes through 1:1 to market
// cap. Only entities with a positive market cap are reported, ordered by
// exposure (NAV / market cap).
func Sensitivity(snaps []models.EntitySnapshot, shocks map[models.Asset]float64, topN int) []models.SensitivityRow {
	var out []models.SensitivityRow
	for _, s := range snaps {
		if s.MarketCap == nil || *s.MarketCap <= 0 {
			continue
		}
		mcap := *s.MarketCap

		var delta float64
		for a, nav := range s.NAVByAsset {
			delta += nav * shocks[a]
		}
		out = append(out, models.SensitivityRow{
			EntityName:     s.EntityName,
			CryptoNAV:      s.CryptoNAV,
			MarketCap:      mcap,
			ExposurePct:    s.CryptoNAV / mcap * 100,
			DeltaNAV:       delta,
			DeltaEquityPct: delta / mcap * 100,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExposurePct != out[j].ExposurePct {
			return out[i].ExposurePct > out[j].ExposurePct
		}
		return out[i].EntityName < out[j].EntityName
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// UniformShock applies the same shock to every asset
func UniformShock(assets []models.Asset, shock float64) map[models.Asset]float64 {
	out := make(map[models.Asset]float64, len(assets))
	for _, a := range assets {
		out[a] = shock
	}
	return out
}

func countEntities(rows []models.ValuatedHolding) int {
	seen := make(map[string]bool)
	for _, r := range rows {
		seen[r.EntityName] = true
	}
	return len(seen)
}

func distinctAssets(rows []models.ValuatedHolding) []models.Asset {
	seen := make(map[models.Asset]bool)
	var out []models.Asset
	for _, r := range rows {
		if !seen[r.Asset] {
			seen[r.Asset] = true
			out = append(out, r.Asset)
		}
	}
	return out
}
