package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/sheets"
)

// TableReader reads value ranges from the tabular store
type TableReader interface {
	BatchGet(ctx context.Context, ranges []string) ([]sheets.ValueRange, error)
	Get(ctx context.Context, rng string) (sheets.ValueRange, error)
}

// SheetLedger reads the central price ledger from a worksheet with the columns asset, usd, timestamp
type SheetLedger struct {
	reader TableReader
	rng    string
	log    *zap.Logger
}

func NewSheetLedger(reader TableReader, rng string, log *zap.Logger) *SheetLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &SheetLedger{reader: reader, rng: rng, log: log.Named("sheet_ledger")}
}

// Entries returns every well-formed ledger row
func (l *SheetLedger) Entries(ctx context.Context) ([]models.AssetPrice, error) {
	vr, err := l.reader.Get(ctx, l.rng)
	if err != nil {
		return nil, err
	}

	header, records := vr.Records()
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(h)
	}
	if missing := sheets.MissingColumns(lower, "asset", "usd", "timestamp"); len(missing) > 0 {
		return nil, fmt.Errorf("%w: ledger range %s missing columns %v", models.ErrSchemaMismatch, l.rng, missing)
	}

	var out []models.AssetPrice
	for _, rec := range records {
		norm := make(map[string]string, len(rec))
		for k, v := range rec {
			norm[strings.ToLower(k)] = v
		}

		asset := models.NormalizeAsset(norm["asset"])
		usd, err := parseLedgerPrice(norm["usd"])
		if asset == "" || err != nil || usd <= 0 {
			l.log.Debug("skipping ledger row", zap.String("asset", string(asset)), zap.String("usd", norm["usd"]))
			continue
		}
		ts, err := parseLedgerTimestamp(norm["timestamp"])
		if err != nil {
			l.log.Debug("skipping ledger row with bad timestamp", zap.String("asset", string(asset)), zap.Error(err))
			continue
		}
		out = append(out, models.AssetPrice{Asset: asset, USD: usd, ObservedAt: ts})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ledger range %s has no usable rows", models.ErrSchemaMismatch, l.rng)
	}
	return out, nil
}

// parseLedgerPrice accepts machine-written values and, failing that, locale-formatted ones
func parseLedgerPrice(raw string) (float64, error) {
	if !strings.Contains(raw, ",") {
		if v, err := parsePlainNumber(raw); err == nil {
			return v, nil
		}
	}
	return ParseLocaleNumber(raw)
}

// parseLedgerTimestamp accepts epoch seconds or an RFC 3339 / "YYYY-MM-DD HH:MM:SS" UTC time
func parseLedgerTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(secs), 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// LedgerRepository stores the central price ledger in the local database
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Entries returns the newest row of every asset
func (r *LedgerRepository) Entries(ctx context.Context) ([]models.AssetPrice, error) {
	var rows []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Raw(`SELECT l.* FROM price_ledger l
			JOIN (SELECT asset, MAX(observed_at) AS observed_at FROM price_ledger GROUP BY asset) m
			ON l.asset = m.asset AND l.observed_at = m.observed_at`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read price ledger: %v", models.ErrSourceUnavailable, err)
	}

	out := make([]models.AssetPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.AssetPrice{
			Asset:      models.NormalizeAsset(row.Asset),
			USD:        row.PriceUSD,
			ObservedAt: row.ObservedAt.UTC(),
		})
	}
	return out, nil
}

// History returns the observations of one asset, newest first
func (r *LedgerRepository) History(ctx context.Context, asset models.Asset, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("asset = ?", string(asset)).
		Order("observed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger history: %w", err)
	}
	return rows, nil
}

// Append records one observation per asset under a shared batch id.
// Re-recording an existing (asset, observed_at) pair is a no-op.
func (r *LedgerRepository) Append(ctx context.Context, prices models.PriceMap, observedAt time.Time, source string) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	batchID := uuid.New().String()
	rows := make([]models.LedgerEntry, 0, len(prices))
	for asset, usd := range prices {
		if usd <= 0 {
			continue
		}
		rows = append(rows, models.LedgerEntry{
			Asset:      string(asset),
			PriceUSD:   usd,
			ObservedAt: observedAt.UTC(),
			Source:     source,
			BatchID:    batchID,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to append ledger rows: %w", result.Error)
	}

	metrics.LedgerRowsWrittenTotal.Add(float64(result.RowsAffected))
	return int(result.RowsAffected), nil
}
