package services

import (
	"context"
	"fmt"
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
	DefaultHoldingsCacheTTL = 15 * time.Minute
	DefaultHoldingsRange    = "aggregated_%s_data"

	holdingsCacheKey = "holdings"
)

// Holdings table columns
const (
	colEntityName  = "Entity Name"
	colEntityType  = "Entity Type"
	colCountry     = "Country"
	colTicker      = "Ticker"
	colMarketCap   = "Market Cap"
	colCryptoAsset = "Crypto Asset"
	colUnits       = "Holdings (Unit)"
)

var requiredHoldingColumns = []string{colEntityName, colEntityType, colCountry, colCryptoAsset, colUnits}

// HoldingsLoader reads one holdings table per supported asset and concatenates
// them into one long-format table
type HoldingsLoader struct {
	reader        TableReader
	catalog       *models.AssetCatalog
	rangeTemplate string
	log           *zap.Logger

	cache *expirable.LRU[string, []models.HoldingRecord]
	group singleflight.Group
}

// NewHoldingsLoader creates a loader. rangeTemplate receives the lower-case
// asset symbol, e.g. "aggregated_%s_data".
func NewHoldingsLoader(reader TableReader, catalog *models.AssetCatalog, rangeTemplate string, cacheTTL time.Duration, log *zap.Logger) *HoldingsLoader {
	if rangeTemplate == "" {
		rangeTemplate = DefaultHoldingsRange
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultHoldingsCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HoldingsLoader{
		reader:        reader,
		catalog:       catalog,
		rangeTemplate: rangeTemplate,
		log:           log.Named("holdings_loader"),
		cache:         expirable.NewLRU[string, []models.HoldingRecord](1, nil, cacheTTL),
	}
}

// Load returns the holdings of every asset whose table could be read.
// Absent or malformed tables are skipped. When the store cannot be read at
// all the result is empty and is not cached, so the next call retries.
func (l *HoldingsLoader) Load(ctx context.Context) ([]models.HoldingRecord, error) {
	if recs, ok := l.cache.Get(holdingsCacheKey); ok {
		return append([]models.HoldingRecord(nil), recs...), nil
	}

	v, _, _ := l.group.Do(holdingsCacheKey, func() (any, error) {
		if recs, ok := l.cache.Get(holdingsCacheKey); ok {
			return recs, nil
		}
		recs, err := l.load(ctx)
		if err != nil {
			l.log.Warn("holdings store unavailable, serving empty holdings", zap.Error(err))
			return []models.HoldingRecord{}, nil
		}
		l.cache.Add(holdingsCacheKey, recs)
		return recs, nil
	})
	return append([]models.HoldingRecord{}, v.([]models.HoldingRecord)...), nil
}

func (l *HoldingsLoader) load(ctx context.Context) ([]models.HoldingRecord, error) {
	assets := l.catalog.Assets()
	ranges := make([]string, len(assets))
	for i, a := range assets {
		ranges[i] = fmt.Sprintf(l.rangeTemplate, a.Lower())
	}

	tables, err := readRanges(ctx, l.reader, ranges, l.log)
	if err != nil {
		return nil, err
	}

	records := make([]models.HoldingRecord, 0)
	for i, a := range assets {
		vr, ok := tables[ranges[i]]
		if !ok {
			metrics.SkippedTablesTotal.WithLabelValues("holdings", string(a)).Inc()
			continue
		}
		recs, err := parseHoldingsTable(vr, a)
		if err != nil {
			metrics.SkippedTablesTotal.WithLabelValues("holdings", string(a)).Inc()
			l.log.Warn("skipping holdings table", zap.String("asset", string(a)), zap.Error(err))
			continue
		}
		records = append(records, recs...)
	}

	l.log.Info("holdings loaded", zap.Int("rows", len(records)), zap.Int("tables", len(tables)))
	return records, nil
}

// readRanges tries one batched read and falls back to reading each range on
// its own, so a single missing worksheet does not hide the others. The error
// is non-nil only when not a single range could be read.
func readRanges(ctx context.Context, reader TableReader, ranges []string, log *zap.Logger) (map[string]sheets.ValueRange, error) {
	out := make(map[string]sheets.ValueRange, len(ranges))

	batch, err := reader.BatchGet(ctx, ranges)
	if err == nil && len(batch) == len(ranges) {
		for i, vr := range batch {
			out[ranges[i]] = vr
		}
		return out, nil
	}
	if err != nil {
		log.Info("batch read failed, reading ranges one by one", zap.Error(err))
	}

	var lastErr error
	for _, rng := range ranges {
		vr, err := reader.Get(ctx, rng)
		if err != nil {
			lastErr = err
			log.Info("range unavailable", zap.String("range", rng), zap.Error(err))
			continue
		}
		out[rng] = vr
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: no range readable: %v", models.ErrSourceUnavailable, lastErr)
	}
	return out, nil
}

func parseHoldingsTable(vr sheets.ValueRange, asset models.Asset) ([]models.HoldingRecord, error) {
	header, rows := vr.Records()
	if missing := sheets.MissingColumns(header, requiredHoldingColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", models.ErrSchemaMismatch, missing)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", models.ErrSchemaMismatch)
	}

	out := make([]models.HoldingRecord, 0, len(rows))
	for _, row := range rows {
		name := row[colEntityName]
		if name == "" {
			continue
		}
		units, err := ParseLocaleNumber(row[colUnits])
		if err != nil || units < 0 {
			continue
		}

		rec := models.HoldingRecord{
			EntityName: name,
			EntityType: models.ParseEntityType(row[colEntityType]),
			Country:    row[colCountry],
			MarketCap:  ParseOptionalLocaleNumber(row[colMarketCap]),
			Asset:      models.NormalizeAsset(row[colCryptoAsset]),
			Units:      units,
		}
		if rec.Asset == "" {
			rec.Asset = asset
		}
		if ticker := strings.TrimSpace(row[colTicker]); ticker != "" && ticker != "-" {
			rec.Ticker = &ticker
		}
		out = append(out, rec)
	}
	return out, nil
}
