package models

import "testing"

func TestParseGroupBy(t *testing.T) {
	tests := []struct {
		raw    string
		want   GroupBy
		wantOK bool
	}{
		{"", GroupByEntity, true},
		{"Entity", GroupByEntity, true},
		{" country ", GroupByCountry, true},
		{"entity type", GroupByEntityType, true},
		{"type", GroupByEntityType, true},
		{"bogus", GroupByEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseGroupBy(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseGroupBy(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		raw    string
		want   Measure
		wantOK bool
	}{
		{"", MeasureUSD, true},
		{"USD", MeasureUSD, true},
		{" units", MeasureUnits, true},
		{"eur", MeasureUSD, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseMeasure(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMeasure(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
