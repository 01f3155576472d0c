package models

import "strings"

// GroupBy selects the key a weight distribution is grouped on
type GroupBy string

const (
	GroupByEntity     GroupBy = "entity"
	GroupByCountry    GroupBy = "country"
	GroupByEntityType GroupBy = "entity_type"
)

// ParseGroupBy accepts the API and CLI spellings. Empty input selects entity;
// ok is false for anything unrecognised.
func ParseGroupBy(raw string) (GroupBy, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, " ", "_"))) {
	case "", "entity":
		return GroupByEntity, true
	case "country":
		return GroupByCountry, true
	case "entity_type", "type":
		return GroupByEntityType, true
	default:
		return GroupByEntity, false
	}
}

// Measure selects what a weight represents
type Measure string

const (
	MeasureUSD   Measure = "usd"
	MeasureUnits Measure = "units"
)

func ParseMeasure(raw string) (Measure, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(MeasureUSD):
		return MeasureUSD, true
	case string(MeasureUnits):
		return MeasureUnits, true
	default:
		return MeasureUSD, false
	}
}

// Weight is one entry of a WeightDistribution
type Weight struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// WeightDistribution is a grouped, non-negative weight series
type WeightDistribution struct {
	GroupBy GroupBy  `json:"group_by"`
	Measure Measure  `json:"measure"`
	Weights []Weight `json:"weights"`
}

// Values returns the raw weight values
func (d WeightDistribution) Values() []float64 {
	out := make([]float64, len(d.Weights))
	for i, w := range d.Weights {
		out[i] = w.Value
	}
	return out
}

// LorenzPoint is one vertex of a Lorenz curve
type LorenzPoint struct {
	Population float64 `json:"p"`
	Share      float64 `json:"l"`
}

// ShareRow is a top-N table line
type ShareRow struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
	Share  float64 `json:"share"`
}

// ConcentrationReport is the full set of distribution statistics
type ConcentrationReport struct {
	GroupBy   GroupBy       `json:"group_by"`
	Measure   Measure       `json:"measure"`
	Count     int           `json:"count"`
	Total     float64       `json:"total"`
	TopN      int           `json:"top_n"`
	TopShare  float64       `json:"top_share"`
	HHI       float64       `json:"hhi"`
	HHIPoints float64       `json:"hhi_points"`
	Gini      float64       `json:"gini"`
	Lorenz    []LorenzPoint `json:"lorenz"`
	Top       []ShareRow    `json:"top"`
}
