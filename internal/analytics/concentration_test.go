package analytics

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

func TestTopShare(t *testing.T) {
	w := []float64{10, 40, 20, 30}

	tests := []struct {
		name string
		in   []float64
		n    int
		want float64
	}{
		{"top one", w, 1, 0.4},
		{"top two", w, 2, 0.7},
		{"n equals len", w, 4, 1},
		{"n above len", w, 10, 1},
		{"n zero", w, 0, 0},
		{"empty", nil, 3, 0},
		{"all zero", []float64{0, 0, 0}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TopShare(tt.in, tt.n), 1e-12)
		})
	}
}

func TestTopShareNonDecreasing(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	w := make([]float64, 25)
	for i := range w {
		w[i] = r.Float64() * 1000
	}

	prev := 0.0
	for n := 1; n <= len(w)+2; n++ {
		got := TopShare(w, n)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 1.0, prev)
}

func TestHHI(t *testing.T) {
	assert.InDelta(t, 0.25, HHI([]float64{1, 1, 1, 1}), 1e-12)
	assert.Equal(t, 1.0, HHI([]float64{5}))
	assert.Zero(t, HHI(nil))
	assert.Zero(t, HHI([]float64{0, 0}))
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.5, Gini([]float64{0, 100}))
	assert.InDelta(t, 0.0, Gini([]float64{3, 3, 3}), 1e-12)
	assert.Zero(t, Gini(nil))
	assert.Zero(t, Gini([]float64{0, 0, 0}))

	// one holder among n: (n-1)/n
	w := make([]float64, 1000)
	w[999] = 1
	assert.InDelta(t, 999.0/1000, Gini(w), 1e-9)
}

func TestLorenz(t *testing.T) {
	p, l := Lorenz([]float64{30, 10, 60})
	assert.Equal(t, []float64{0, 1.0 / 3, 2.0 / 3, 1}, p)
	require.Len(t, l, 4)
	assert.Equal(t, 0.0, l[0])
	assert.InDelta(t, 0.1, l[1], 1e-12)
	assert.InDelta(t, 0.4, l[2], 1e-12)
	assert.Equal(t, 1.0, l[3])

	p, l = Lorenz(nil)
	assert.Equal(t, []float64{0, 1}, p)
	assert.Equal(t, []float64{0, 1}, l)

	p, l = Lorenz([]float64{0, 0})
	assert.Equal(t, []float64{0, 1}, p)
	assert.Equal(t, []float64{0, 1}, l)
}

func TestLorenzMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		w := make([]float64, 1+r.Intn(40))
		for i := range w {
			if r.Intn(4) > 0 {
				w[i] = r.Float64() * 1e9
			}
		}
		p, l := Lorenz(w)
		for i := 1; i < len(p); i++ {
			assert.GreaterOrEqual(t, p[i], p[i-1])
			assert.GreaterOrEqual(t, l[i], l[i-1])
		}
		assert.Equal(t, 1.0, p[len(p)-1])
		assert.Equal(t, 1.0, l[len(l)-1])
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	rows := []models.ValuatedHolding{
		{HoldingRecord: models.HoldingRecord{EntityName: "A", Asset: "BTC", Units: 10}, USDValue: 1_000_000},
		{HoldingRecord: models.HoldingRecord{EntityName: "B", Asset: "BTC", Units: 5}, USDValue: 500_000},
	}

	report, err := Analyze(BuildDistribution(rows, models.GroupByEntity, models.MeasureUSD), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count)
	assert.InDelta(t, 0.5556, report.HHI, 1e-4)
	assert.InDelta(t, 5555.56, report.HHIPoints, 1e-2)
	assert.InDelta(t, 0.1667, report.Gini, 1e-4)
	assert.InDelta(t, 2.0/3, report.TopShare, 1e-12)
	require.Len(t, report.Top, 1)
	assert.Equal(t, "A", report.Top[0].Key)
	assert.Len(t, report.Lorenz, 3)
}

func TestAnalyzeRejectsDegenerate(t *testing.T) {
	tests := []struct {
		name    string
		weights []models.Weight
	}{
		{"empty", nil},
		{"single", []models.Weight{{Key: "A", Value: 1}}},
		{"one positive", []models.Weight{{Key: "A", Value: 1}, {Key: "B", Value: 0}, {Key: "C", Value: -3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(models.WeightDistribution{GroupBy: models.GroupByEntity, Weights: tt.weights}, 5)
			assert.True(t, errors.Is(err, models.ErrDegenerateDistribution))
		})
	}
}

func TestAnalyzeDropsNonPositive(t *testing.T) {
	dist := models.WeightDistribution{Weights: []models.Weight{
		{Key: "A", Value: 3}, {Key: "B", Value: 0}, {Key: "C", Value: 1},
	}}
	report, err := Analyze(dist, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, DefaultTopN, report.TopN)
	assert.Equal(t, 1.0, report.TopShare)
}
