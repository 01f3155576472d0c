package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

// LedgerSink appends price observations to the central ledger
type LedgerSink interface {
	Append(ctx context.Context, prices models.PriceMap, observedAt time.Time, source string) (int, error)
}

// PriceWorker fetches live prices and records them in the price ledger, so
// that the resolver's first tier stays fresh
type PriceWorker struct {
	catalog *models.AssetCatalog
	market  MarketSource
	sink    LedgerSink
	source  string
	log     *zap.Logger
	now     func() time.Time

	mu               sync.RWMutex
	runs             int
	rowsWrittenTotal int
	lastRunTime      time.Time
	lastSuccessTime  time.Time
	lastErr          error
}

// PriceWorkerStatus reports what the worker did so far
type PriceWorkerStatus struct {
	Runs             int       `json:"runs"`
	RowsWrittenTotal int       `json:"rows_written_total"`
	LastRunTime      time.Time `json:"last_run_time"`
	LastSuccessTime  time.Time `json:"last_success_time"`
	LastError        string    `json:"last_error,omitempty"`
}

func NewPriceWorker(catalog *models.AssetCatalog, market MarketSource, sink LedgerSink, source string, log *zap.Logger) *PriceWorker {
	if source == "" {
		source = "coingecko"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceWorker{
		catalog: catalog,
		market:  market,
		sink:    sink,
		source:  source,
		log:     log.Named("price_worker"),
		now:     time.Now,
	}
}

// RunOnce fetches one batch of live prices and appends the priced assets to
// the ledger, all stamped with the same observation time. Assets the market
// did not price are left out rather than recorded as zero.
func (w *PriceWorker) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.LedgerUpdateDuration.Observe(time.Since(start).Seconds())
	}()

	observedAt := w.now().UTC().Truncate(time.Second)
	written, err := w.run(ctx, observedAt)

	w.mu.Lock()
	w.runs++
	w.lastRunTime = observedAt
	w.lastErr = err
	if err == nil {
		w.rowsWrittenTotal += written
		w.lastSuccessTime = observedAt
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("ledger update failed", zap.Error(err))
		return 0, err
	}
	w.log.Info("ledger updated", zap.Int("rows", written), zap.Time("observed_at", observedAt))
	return written, nil
}

func (w *PriceWorker) run(ctx context.Context, observedAt time.Time) (int, error) {
	prices, err := w.market.FetchPrices(ctx, w.catalog.Assets())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch live prices: %w", err)
	}
	if missing := prices.Missing(w.catalog.Assets()); len(missing) > 0 {
		w.log.Info("some assets unpriced", zap.Any("missing", missing))
	}

	written, err := w.sink.Append(ctx, prices, observedAt, w.source)
	if err != nil {
		return 0, fmt.Errorf("failed to append ledger rows: %w", err)
	}
	return written, nil
}

// GetStatus returns the current status
func (w *PriceWorker) GetStatus() PriceWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := PriceWorkerStatus{
		Runs:             w.runs,
		RowsWrittenTotal: w.rowsWrittenTotal,
		LastRunTime:      w.lastRunTime,
		LastSuccessTime:  w.lastSuccessTime,
	}
	if w.lastErr != nil {
		status.LastError = w.lastErr.Error()
	}
	return status
}
