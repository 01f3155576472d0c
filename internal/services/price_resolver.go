package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

const (
	DefaultPriceCacheTTL  = time.Hour
	DefaultLedgerCacheTTL = 5 * time.Minute

	resolutionCacheKey = "prices"
	ledgerCacheKey     = "ledger"
)

// LedgerSource reads (asset, usd, timestamp) observations from the central ledger
type LedgerSource interface {
	Entries(ctx context.Context) ([]models.AssetPrice, error)
}

// MarketSource fetches live prices for a set of assets in one batched call
type MarketSource interface {
	FetchPrices(ctx context.Context, assets []models.Asset) (models.PriceMap, error)
}

// PriceStorage is the last-resort persisted price table
type PriceStorage interface {
	Load() (models.PriceMap, error)
	Save(prices models.PriceMap) error
}

// PriceResolver returns one consistent price per supported asset by walking
// an ordered chain of sources: central ledger, live market API, persisted
// store. Each tier runs only when the previous one failed or was incomplete.
// Results are cached for a fixed window; concurrent misses share one refresh.
type PriceResolver struct {
	catalog *models.AssetCatalog
	ledger  LedgerSource
	market  MarketSource
	store   PriceStorage
	log     *zap.Logger

	resolved   *expirable.LRU[string, models.PriceResolution]
	ledgerRows *expirable.LRU[string, []models.AssetPrice]
	group      singleflight.Group
	now        func() time.Time
}

// PriceResolverOptions configures cache windows. Zero values select the defaults.
type PriceResolverOptions struct {
	CacheTTL  time.Duration
	LedgerTTL time.Duration
}

// NewPriceResolver wires the tiers together. ledger and market may be nil to
// disable those tiers; store is required.
func NewPriceResolver(catalog *models.AssetCatalog, ledger LedgerSource, market MarketSource, store PriceStorage, opts PriceResolverOptions, log *zap.Logger) *PriceResolver {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultPriceCacheTTL
	}
	if opts.LedgerTTL <= 0 {
		opts.LedgerTTL = DefaultLedgerCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PriceResolver{
		catalog:    catalog,
		ledger:     ledger,
		market:     market,
		store:      store,
		log:        log.Named("price_resolver"),
		resolved:   expirable.NewLRU[string, models.PriceResolution](1, nil, opts.CacheTTL),
		ledgerRows: expirable.NewLRU[string, []models.AssetPrice](1, nil, opts.LedgerTTL),
		now:        time.Now,
	}
}

// GetPrices returns the resolved price of every supported asset
func (r *PriceResolver) GetPrices(ctx context.Context) models.PriceMap {
	return r.Resolve(ctx).Prices
}

// Resolve returns the prices together with the tier that served them.
// It never fails: when every tier is down, the persisted or default prices are returned.
func (r *PriceResolver) Resolve(ctx context.Context) models.PriceResolution {
	if res, ok := r.resolved.Get(resolutionCacheKey); ok {
		metrics.PriceCacheHits.Inc()
		return cloneResolution(res)
	}

	// The shared refill outlives the caller that started it; tiers carry their own timeouts
	refillCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(resolutionCacheKey, func() (any, error) {
		if res, ok := r.resolved.Get(resolutionCacheKey); ok {
			return res, nil
		}
		res := r.resolve(refillCtx)
		r.resolved.Add(resolutionCacheKey, res)
		return res, nil
	})
	return cloneResolution(v.(models.PriceResolution))
}

// Invalidate drops the cached resolution so the next call walks the chain again
func (r *PriceResolver) Invalidate() {
	r.resolved.Purge()
	r.ledgerRows.Purge()
}

func (r *PriceResolver) resolve(ctx context.Context) models.PriceResolution {
	assets := r.catalog.Assets()

	if prices, ok := r.fromLedger(ctx, assets); ok {
		return r.finish(prices, models.PriceSourceLedger)
	}

	if prices, ok := r.fromMarket(ctx, assets); ok {
		return r.finish(prices, models.PriceSourceLive)
	}

	stored, err := r.store.Load()
	if err != nil {
		r.log.Warn("price store unreadable, using defaults", zap.Error(err))
	}
	prices := make(models.PriceMap, len(assets))
	for _, a := range assets {
		prices[a] = stored[a]
	}
	if missing := prices.Missing(assets); len(missing) > 0 {
		r.log.Warn("serving fallback prices with unpriced assets", zap.Any("missing", missing))
	}
	return r.finish(prices, models.PriceSourceFallback)
}

func (r *PriceResolver) fromLedger(ctx context.Context, assets []models.Asset) (models.PriceMap, bool) {
	if r.ledger == nil {
		return nil, false
	}

	rows, ok := r.ledgerRows.Get(ledgerCacheKey)
	if !ok {
		var err error
		rows, err = r.ledger.Entries(ctx)
		if err != nil {
			metrics.PriceTierFailuresTotal.WithLabelValues(string(models.PriceSourceLedger), "error").Inc()
			r.log.Warn("price ledger unavailable", zap.Error(err))
			return nil, false
		}
		r.ledgerRows.Add(ledgerCacheKey, rows)
	}

	latest := models.LatestByAsset(rows)
	prices := make(models.PriceMap, len(assets))
	for _, a := range assets {
		if obs, ok := latest[a]; ok {
			prices[a] = obs.USD
		}
	}
	if missing := prices.Missing(assets); len(missing) > 0 {
		metrics.PriceTierFailuresTotal.WithLabelValues(string(models.PriceSourceLedger), "incomplete").Inc()
		r.log.Info("price ledger incomplete", zap.Any("missing", missing))
		return nil, false
	}
	return prices, true
}

func (r *PriceResolver) fromMarket(ctx context.Context, assets []models.Asset) (models.PriceMap, bool) {
	if r.market == nil {
		return nil, false
	}

	fetched, err := r.market.FetchPrices(ctx, assets)
	if err != nil {
		metrics.PriceTierFailuresTotal.WithLabelValues(string(models.PriceSourceLive), "error").Inc()
		r.log.Warn("live prices unavailable", zap.Error(err))
		return nil, false
	}

	prices := make(models.PriceMap, len(assets))
	for _, a := range assets {
		prices[a] = fetched[a]
	}
	if missing := prices.Missing(assets); len(missing) > 0 {
		metrics.PriceTierFailuresTotal.WithLabelValues(string(models.PriceSourceLive), "incomplete").Inc()
		r.log.Warn("live prices incomplete", zap.Any("missing", missing))
		return nil, false
	}

	if err := r.store.Save(prices); err != nil {
		r.log.Warn("failed to persist live prices", zap.Error(err))
	}
	return prices, true
}

func (r *PriceResolver) finish(prices models.PriceMap, source models.PriceSource) models.PriceResolution {
	metrics.PriceResolutionsTotal.WithLabelValues(string(source)).Inc()
	for a, v := range prices {
		metrics.AssetPriceUSD.WithLabelValues(string(a)).Set(v)
	}
	r.log.Info("prices resolved", zap.String("source", string(source)), zap.Int("assets", len(prices)))
	return models.PriceResolution{
		Prices:     prices,
		Source:     source,
		ResolvedAt: r.now().UTC(),
	}
}

func cloneResolution(res models.PriceResolution) models.PriceResolution {
	res.Prices = res.Prices.Clone()
	return res
}
