package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/sheets"
)

const (
	DefaultHistoricCacheTTL = 15 * time.Minute
	DefaultHistoricRange    = "historic_%s"
	DefaultHistoricMinYear  = 2024

	historicCacheKey = "historic"

	// months in the trailing CAGR window
	cagrWindow = 12
)

var requiredHistoricColumns = []string{"Year", "Month", "Crypto Asset", "Holdings (Unit)", "USD Value"}

// HistoricLoader reads the raw monthly tables of every supported asset
type HistoricLoader struct {
	reader        TableReader
	catalog       *models.AssetCatalog
	rangeTemplate string
	log           *zap.Logger

	cache *expirable.LRU[string, []models.HistoricRecord]
	group singleflight.Group
}

func NewHistoricLoader(reader TableReader, catalog *models.AssetCatalog, rangeTemplate string, cacheTTL time.Duration, log *zap.Logger) *HistoricLoader {
	if rangeTemplate == "" {
		rangeTemplate = DefaultHistoricRange
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultHistoricCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoricLoader{
		reader:        reader,
		catalog:       catalog,
		rangeTemplate: rangeTemplate,
		log:           log.Named("historic_loader"),
		cache:         expirable.NewLRU[string, []models.HistoricRecord](1, nil, cacheTTL),
	}
}

// Load returns the raw historic rows of all readable tables
func (l *HistoricLoader) Load(ctx context.Context) ([]models.HistoricRecord, error) {
	if recs, ok := l.cache.Get(historicCacheKey); ok {
		return append([]models.HistoricRecord(nil), recs...), nil
	}

	v, err, _ := l.group.Do(historicCacheKey, func() (any, error) {
		if recs, ok := l.cache.Get(historicCacheKey); ok {
			return recs, nil
		}
		recs, err := l.load(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Add(historicCacheKey, recs)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]models.HistoricRecord(nil), v.([]models.HistoricRecord)...), nil
}

func (l *HistoricLoader) load(ctx context.Context) ([]models.HistoricRecord, error) {
	assets := l.catalog.Assets()
	ranges := make([]string, len(assets))
	for i, a := range assets {
		ranges[i] = fmt.Sprintf(l.rangeTemplate, a.Lower())
	}

	tables, err := readRanges(ctx, l.reader, ranges, l.log)
	if err != nil {
		return nil, err
	}

	var out []models.HistoricRecord
	for i, a := range assets {
		vr, ok := tables[ranges[i]]
		if !ok {
			metrics.SkippedTablesTotal.WithLabelValues("historic", string(a)).Inc()
			continue
		}
		recs, err := parseHistoricTable(vr, a)
		if err != nil {
			metrics.SkippedTablesTotal.WithLabelValues("historic", string(a)).Inc()
			l.log.Warn("skipping historic table", zap.String("asset", string(a)), zap.Error(err))
			continue
		}
		out = append(out, recs...)
	}
	return out, nil
}

func parseHistoricTable(vr sheets.ValueRange, asset models.Asset) ([]models.HistoricRecord, error) {
	header, rows := vr.Records()
	if missing := sheets.MissingColumns(header, requiredHistoricColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", models.ErrSchemaMismatch, missing)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", models.ErrSchemaMismatch)
	}

	out := make([]models.HistoricRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.HistoricRecord{
			Year:     row["Year"],
			Month:    row["Month"],
			Asset:    row["Crypto Asset"],
			Units:    row["Holdings (Unit)"],
			USDValue: row["USD Value"],
		}
		if strings.TrimSpace(rec.Asset) == "" {
			rec.Asset = string(asset)
		}
		out = append(out, rec)
	}
	return out, nil
}

// HistoricSplicer turns raw monthly rows into a clean series ending with the
// live snapshot, and derives month-over-month analytics from it
type HistoricSplicer struct {
	minYear int
	now     func() time.Time
}

// NewHistoricSplicer keeps rows from minYear on; zero selects the default
func NewHistoricSplicer(minYear int) *HistoricSplicer {
	if minYear <= 0 {
		minYear = DefaultHistoricMinYear
	}
	return &HistoricSplicer{minYear: minYear, now: time.Now}
}

type seriesKey struct {
	date  time.Time
	asset models.Asset
}

// BuildSeries normalizes records, sums duplicate (month, asset) rows and
// appends one synthetic point per asset of the current snapshot, dated the
// month after the last historic month. The result is sorted by asset, then date.
func (s *HistoricSplicer) BuildSeries(records []models.HistoricRecord, current []models.ValuatedHolding) []models.HistoricPoint {
	agg := make(map[seriesKey]*models.HistoricPoint)
	var last time.Time

	for _, r := range records {
		year, err := parseCalendarInt(r.Year)
		if err != nil || year < s.minYear {
			continue
		}
		month, err := parseCalendarInt(r.Month)
		if err != nil || month < 1 || month > 12 {
			continue
		}
		asset := models.NormalizeAsset(r.Asset)
		if asset == "" {
			continue
		}
		units, err := ParseLocaleNumber(r.Units)
		if err != nil {
			continue
		}
		usd, err := ParseLocaleNumber(r.USDValue)
		if err != nil {
			continue
		}

		date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		if date.After(last) {
			last = date
		}
		key := seriesKey{date: date, asset: asset}
		p, ok := agg[key]
		if !ok {
			p = &models.HistoricPoint{Date: date, Year: year, Month: month, Asset: asset}
			agg[key] = p
		}
		p.Units += units
		p.USDValue += usd
	}

	var spliceDate time.Time
	if last.IsZero() {
		now := s.now().UTC()
		spliceDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		spliceDate = last.AddDate(0, 1, 0)
	}

	for _, h := range current {
		key := seriesKey{date: spliceDate, asset: h.Asset}
		p, ok := agg[key]
		if !ok {
			p = &models.HistoricPoint{
				Date:      spliceDate,
				Year:      spliceDate.Year(),
				Month:     int(spliceDate.Month()),
				Asset:     h.Asset,
				Synthetic: true,
			}
			agg[key] = p
		}
		p.Units += h.Units
		p.USDValue += h.USDValue
	}

	out := make([]models.HistoricPoint, 0, len(agg))
	for _, p := range agg {
		out = append(out, *p)
	}
	sortSeries(out)
	return out
}

func sortSeries(series []models.HistoricPoint) {
	sort.Slice(series, func(i, j int) bool {
		if series[i].Asset != series[j].Asset {
			return series[i].Asset < series[j].Asset
		}
		return series[i].Date.Before(series[j].Date)
	})
}

// Decompose splits every month-over-month USD change per asset into a price
// effect on the previously held units and a quantity effect at the current
// price. Assets with fewer than two months produce no rows.
func Decompose(series []models.HistoricPoint) []models.Decomposition {
	byAsset := make(map[models.Asset][]models.HistoricPoint)
	var assets []models.Asset
	for _, p := range series {
		if _, ok := byAsset[p.Asset]; !ok {
			assets = append(assets, p.Asset)
		}
		byAsset[p.Asset] = append(byAsset[p.Asset], p)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	var out []models.Decomposition
	for _, a := range assets {
		points := byAsset[a]
		if len(points) < 2 {
			continue
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		for i := 1; i < len(points); i++ {
			prev, cur := points[i-1], points[i]
			pPrev, pCur := unitPrice(prev), unitPrice(cur)
			out = append(out, models.Decomposition{
				Date:           cur.Date,
				Asset:          a,
				DeltaUSD:       cur.USDValue - prev.USDValue,
				PriceEffect:    prev.Units * (pCur - pPrev),
				QuantityEffect: pCur * (cur.Units - prev.Units),
			})
		}
	}
	return out
}

func unitPrice(p models.HistoricPoint) float64 {
	if p.Units == 0 {
		return 0
	}
	return p.USDValue / p.Units
}

// SummarizeHistoric computes monthly, year-to-date and CAGR changes of the
// series restricted to assets (all assets when empty). Unit KPIs are only
// reported for a single asset, since units of different assets do not add up.
func SummarizeHistoric(series []models.HistoricPoint, assets []models.Asset) models.HistoricSummary {
	scope := make(map[models.Asset]bool, len(assets))
	for _, a := range assets {
		scope[a] = true
	}

	usdByMonth := make(map[time.Time]float64)
	unitsByMonth := make(map[time.Time]float64)
	seen := make(map[models.Asset]bool)
	var inScope []models.Asset
	for _, p := range series {
		if len(scope) > 0 && !scope[p.Asset] {
			continue
		}
		if !seen[p.Asset] {
			seen[p.Asset] = true
			inScope = append(inScope, p.Asset)
		}
		usdByMonth[p.Date] += p.USDValue
		unitsByMonth[p.Date] += p.Units
	}
	sort.Slice(inScope, func(i, j int) bool { return inScope[i] < inScope[j] })

	summary := models.HistoricSummary{Assets: inScope}
	if len(usdByMonth) == 0 {
		return summary
	}

	months := make([]time.Time, 0, len(usdByMonth))
	for m := range usdByMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	latest := months[len(months)-1]
	summary.LatestDate = &latest
	summary.LatestUSD = usdByMonth[latest]

	var previous time.Time
	if len(months) > 1 {
		previous = months[len(months)-2]
		summary.PreviousDate = &previous
		summary.PreviousUSD = ptr(usdByMonth[previous])
	}

	priorDec := time.Date(latest.Year()-1, time.December, 1, 0, 0, 0, 0, time.UTC)
	start := months[0]
	if len(months) >= cagrWindow {
		start = months[len(months)-cagrWindow]
	}
	summary.CAGRMonths = monthsBetween(start, latest)

	summary.MonthlyUSDPct = pctChange(summary.PreviousUSD, summary.LatestUSD)
	summary.YTDUSDPct = pctChange(monthTotal(usdByMonth, priorDec), summary.LatestUSD)
	summary.CAGRUSDPct = cagr(usdByMonth[start], summary.LatestUSD, summary.CAGRMonths)

	if len(inScope) == 1 {
		summary.LatestUnits = ptr(unitsByMonth[latest])
		if summary.PreviousDate != nil {
			summary.MonthlyUnitsPct = pctChange(ptr(unitsByMonth[previous]), unitsByMonth[latest])
		}
		summary.YTDUnitsPct = pctChange(monthTotal(unitsByMonth, priorDec), unitsByMonth[latest])
		summary.CAGRUnitsPct = cagr(unitsByMonth[start], unitsByMonth[latest], summary.CAGRMonths)
	}
	return summary
}

func monthTotal(totals map[time.Time]float64, month time.Time) *float64 {
	v, ok := totals[month]
	if !ok {
		return nil
	}
	return &v
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// pctChange is nil when the baseline is missing or not positive
func pctChange(old *float64, cur float64) *float64 {
	if old == nil || *old <= 0 {
		return nil
	}
	return ptr((cur - *old) / *old * 100)
}

func cagr(start, end float64, months int) *float64 {
	if start <= 0 || months <= 0 {
		return nil
	}
	return ptr((math.Pow(end/start, 12/float64(months)) - 1) * 100)
}

// parseCalendarInt reads year and month cells, which some sheets format as "2024.0"
func parseCalendarInt(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parsePlainNumber(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int(f), nil
}
