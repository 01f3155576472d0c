package analytics

import (
	"sort"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// BuildDistribution groups valuated holdings into a weight distribution.
// Units of different assets cannot be summed, so a units measure over more
// than one asset falls back to USD; the returned distribution records the
// measure actually used. Weights are sorted by key for stable output.
func BuildDistribution(rows []models.ValuatedHolding, groupBy models.GroupBy, measure models.Measure) models.WeightDistribution {
	if measure == models.MeasureUnits && !singleAsset(rows) {
		measure = models.MeasureUSD
	}

	totals := make(map[string]float64)
	for _, r := range rows {
		key := groupKey(r, groupBy)
		if measure == models.MeasureUnits {
			totals[key] += r.Units
		} else {
			totals[key] += r.USDValue
		}
	}

	weights := make([]models.Weight, 0, len(totals))
	for k, v := range totals {
		weights = append(weights, models.Weight{Key: k, Value: v})
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Key < weights[j].Key })

	return models.WeightDistribution{GroupBy: groupBy, Measure: measure, Weights: weights}
}

func groupKey(r models.ValuatedHolding, groupBy models.GroupBy) string {
	switch groupBy {
	case models.GroupByCountry:
		return r.Country
	case models.GroupByEntityType:
		return string(r.EntityType)
	default:
		return r.EntityName
	}
}

func singleAsset(rows []models.ValuatedHolding) bool {
	for _, r := range rows {
		if r.Asset != rows[0].Asset {
			return false
		}
	}
	return len(rows) > 0
}
