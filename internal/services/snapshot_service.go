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

// HoldingsSource loads the current holdings table
type HoldingsSource interface {
	Load(ctx context.Context) ([]models.HoldingRecord, error)
}

// PriceSource resolves one price per supported asset
type PriceSource interface {
	Resolve(ctx context.Context) models.PriceResolution
}

// HistoricSource loads the raw monthly history
type HistoricSource interface {
	Load(ctx context.Context) ([]models.HistoricRecord, error)
}

// SnapshotService joins holdings with resolved prices into the current
// treasury snapshot, and splices that snapshot onto the monthly history
type SnapshotService struct {
	holdings HoldingsSource
	prices   PriceSource
	historic HistoricSource
	splicer  *HistoricSplicer
	log      *zap.Logger

	mu           sync.RWMutex
	lastSnapshot time.Time
}

// NewSnapshotService creates a new snapshot service. historic may be nil,
// in which case the series only holds the live point.
func NewSnapshotService(holdings HoldingsSource, prices PriceSource, historic HistoricSource, splicer *HistoricSplicer, log *zap.Logger) *SnapshotService {
	if splicer == nil {
		splicer = NewHistoricSplicer(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotService{
		holdings: holdings,
		prices:   prices,
		historic: historic,
		splicer:  splicer,
		log:      log.Named("snapshot"),
	}
}

// Snapshot values the current holdings at the resolved prices
func (s *SnapshotService) Snapshot(ctx context.Context) (*models.TreasurySnapshot, error) {
	holdings, err := s.holdings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	res := s.prices.Resolve(ctx)

	snap := &models.TreasurySnapshot{
		Holdings:    AttachValues(holdings, res.Prices),
		Prices:      res,
		AssembledAt: time.Now().UTC(),
	}
	if snap.Holdings == nil {
		snap.Holdings = []models.ValuatedHolding{}
	}

	s.mu.Lock()
	s.lastSnapshot = snap.AssembledAt
	s.mu.Unlock()

	s.recordMetrics(snap)
	s.log.Debug("snapshot assembled",
		zap.Int("holdings", len(snap.Holdings)),
		zap.String("price_source", string(res.Source)))
	return snap, nil
}

// Series returns the monthly history ending with the given current snapshot.
// An unreadable history degrades to the live point only.
func (s *SnapshotService) Series(ctx context.Context, current []models.ValuatedHolding) []models.HistoricPoint {
	var records []models.HistoricRecord
	if s.historic != nil {
		var err error
		records, err = s.historic.Load(ctx)
		if err != nil {
			s.log.Warn("historic tables unavailable", zap.Error(err))
		}
	}
	return s.splicer.BuildSeries(records, current)
}

// LastSnapshot returns when the most recent snapshot was assembled
func (s *SnapshotService) LastSnapshot() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

func (s *SnapshotService) recordMetrics(snap *models.TreasurySnapshot) {
	byAsset := make(map[models.Asset]float64)
	for _, h := range snap.Holdings {
		byAsset[h.Asset] += h.USDValue
	}
	metrics.TreasuryValueUSD.Set(TotalUSD(snap.Holdings))
	metrics.TreasuryEntitiesTotal.Set(float64(countEntities(snap.Holdings)))
	for a, v := range byAsset {
		metrics.TreasuryValueByAsset.WithLabelValues(string(a)).Set(v)
	}
}
