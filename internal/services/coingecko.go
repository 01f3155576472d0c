package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/treasury-tracker/internal/metrics"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

const (
	coinGeckoBaseURL        = "https://api.coingecko.com/api/v3"
	coinGeckoDefaultTimeout = 8 * time.Second
	coinGeckoDemoKeyHeader  = "x-cg-demo-api-key"
)

// CoinGeckoService fetches spot prices from the CoinGecko simple/price endpoint
type CoinGeckoService struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	catalog    *models.AssetCatalog
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
	log        *zap.Logger
}

// CoinGeckoOptions tunes a CoinGeckoService. Zero values select the defaults.
type CoinGeckoOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	Attempts          int
	RetryDelay        time.Duration
	RequestsPerMinute int
}

// NewCoinGeckoService creates a new CoinGecko API service
func NewCoinGeckoService(catalog *models.AssetCatalog, opts CoinGeckoOptions, log *zap.Logger) *CoinGeckoService {
	if opts.BaseURL == "" {
		opts.BaseURL = coinGeckoBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = coinGeckoDefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &CoinGeckoService{
		client:     &http.Client{Timeout: opts.Timeout},
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		catalog:    catalog,
		limiter:    rate.NewLimiter(limit, 1),
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		log:        log.Named("coingecko"),
	}
}

// FetchPrices requests every asset in one batched call. It succeeds only when
// each requested asset comes back with a positive USD price. Failed attempts
// are retried up to the configured attempt count with a fixed delay.
func (s *CoinGeckoService) FetchPrices(ctx context.Context, assets []models.Asset) (models.PriceMap, error) {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		spec, ok := s.catalog.Spec(a)
		if !ok || spec.CoinGeckoID == "" {
			return nil, fmt.Errorf("%w: no coingecko id for %s", models.ErrSourceUnavailable, a)
		}
		ids = append(ids, spec.CoinGeckoID)
	}
	sort.Strings(ids)

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		prices, err := s.fetchOnce(ctx, ids)
		if err == nil {
			if missing := prices.Missing(assets); len(missing) > 0 {
				err = fmt.Errorf("response missing prices for %v", missing)
			} else {
				return prices, nil
			}
		}
		lastErr = err
		s.log.Warn("price fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("attempts", s.attempts),
			zap.Error(err))

		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("%w: coingecko: %v", models.ErrSourceUnavailable, lastErr)
}

func (s *CoinGeckoService) fetchOnce(ctx context.Context, ids []string) (models.PriceMap, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	reqURL := fmt.Sprintf("%s/simple/price?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set(coinGeckoDemoKeyHeader, s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.CoinGeckoAPILatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CoinGeckoRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.CoinGeckoRequestsTotal.WithLabelValues("failed").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coingecko returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.CoinGeckoRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	metrics.CoinGeckoRequestsTotal.WithLabelValues("success").Inc()

	prices := make(models.PriceMap, len(payload))
	for id, quote := range payload {
		asset, ok := s.catalog.AssetForCoinGeckoID(id)
		if !ok {
			continue
		}
		if usd, ok := quote["usd"]; ok && usd > 0 {
			prices[asset] = usd
		}
	}
	return prices, nil
}
