// Package analytics computes concentration and inequality statistics over
// weight distributions.
//
// The statistic functions are pure and total: empty or all-zero input yields
// zero (Lorenz yields the diagonal endpoints). Callers that need statistics of
// a real distribution go through Analyze, which rejects degenerate input.
package analytics

import (
	"fmt"
	"sort"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// DefaultTopN is the top-N cut used when the caller passes none
const DefaultTopN = 10

// TopShare returns the share of the total held by the n largest weights
func TopShare(weights []float64, n int) float64 {
	total := sum(weights)
	if total <= 0 || n <= 0 {
		return 0
	}
	if n >= len(weights) {
		return 1
	}

	sorted := sortedDesc(weights)
	return sum(sorted[:n]) / total
}

// HHI returns the Herfindahl-Hirschman index as a fraction in [1/N, 1].
// Multiply by 10,000 for the conventional points scale.
func HHI(weights []float64) float64 {
	total := sum(weights)
	if total <= 0 {
		return 0
	}

	var hhi float64
	for _, w := range weights {
		s := w / total
		hhi += s * s
	}
	return hhi
}

// Gini returns the Gini coefficient using 1-indexed ranks over the
// ascending sort: G = 2*sum(i*x_i)/(n*sum(x)) - (n+1)/n
func Gini(weights []float64) float64 {
	total := sum(weights)
	n := float64(len(weights))
	if total <= 0 || n == 0 {
		return 0
	}

	sorted := sortedAsc(weights)
	var ranked float64
	for i, x := range sorted {
		ranked += float64(i+1) * x
	}
	g := 2*ranked/(n*total) - (n+1)/n
	if g < 0 {
		return 0
	}
	return g
}

// Lorenz returns the population quantiles p and cumulative weight shares L,
// both starting at 0 and ending at exactly 1
func Lorenz(weights []float64) (p, l []float64) {
	total := sum(weights)
	if total <= 0 || len(weights) == 0 {
		return []float64{0, 1}, []float64{0, 1}
	}

	sorted := sortedAsc(weights)
	n := len(sorted)
	p = make([]float64, n+1)
	l = make([]float64, n+1)

	var cum float64
	for i, x := range sorted {
		cum += x
		p[i+1] = float64(i+1) / float64(n)
		l[i+1] = cum / total
		if l[i+1] < l[i] {
			l[i+1] = l[i]
		}
	}
	p[n] = 1
	l[n] = 1
	return p, l
}

// Analyze computes the full report of a distribution. Non-positive weights
// are dropped first; fewer than two remaining entries is rejected with
// ErrDegenerateDistribution.
func Analyze(dist models.WeightDistribution, topN int) (models.ConcentrationReport, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	kept := make([]models.Weight, 0, len(dist.Weights))
	for _, w := range dist.Weights {
		if w.Value > 0 {
			kept = append(kept, w)
		}
	}
	if len(kept) < 2 {
		return models.ConcentrationReport{}, fmt.Errorf("%w: %d positive weights by %s, need at least 2",
			models.ErrDegenerateDistribution, len(kept), dist.GroupBy)
	}

	values := make([]float64, len(kept))
	for i, w := range kept {
		values[i] = w.Value
	}
	total := sum(values)
	hhi := HHI(values)

	p, l := Lorenz(values)
	lorenz := make([]models.LorenzPoint, len(p))
	for i := range p {
		lorenz[i] = models.LorenzPoint{Population: p[i], Share: l[i]}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Value != kept[j].Value {
			return kept[i].Value > kept[j].Value
		}
		return kept[i].Key < kept[j].Key
	})
	top := kept
	if len(top) > topN {
		top = top[:topN]
	}
	rows := make([]models.ShareRow, len(top))
	for i, w := range top {
		rows[i] = models.ShareRow{Key: w.Key, Weight: w.Value, Share: w.Value / total}
	}

	return models.ConcentrationReport{
		GroupBy:   dist.GroupBy,
		Measure:   dist.Measure,
		Count:     len(kept),
		Total:     total,
		TopN:      topN,
		TopShare:  TopShare(values, topN),
		HHI:       hhi,
		HHIPoints: hhi * 10000,
		Gini:      Gini(values),
		Lorenz:    lorenz,
		Top:       rows,
	}, nil
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func sortedAsc(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func sortedDesc(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}
