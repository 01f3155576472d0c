// Package app wires the tracker's services from configuration. Both the
// HTTP server and treasuryctl build on it.
package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/treasury-tracker/internal/config"
	"github.com/codyseavey/treasury-tracker/internal/database"
	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/services"
	"github.com/codyseavey/treasury-tracker/internal/sheets"
)

const (
	LedgerSourceSheet = "sheet"
	LedgerSourceDB    = "db"
	LedgerSourceNone  = "none"
)

type App struct {
	Config  config.Config
	Catalog *models.AssetCatalog
	DATCO   map[models.Asset][]string

	Market    *services.CoinGeckoService
	Store     *services.PriceStore
	Resolver  *services.PriceResolver
	Snapshots *services.SnapshotService

	// set only when the ledger lives in the local database
	DB         *gorm.DB
	LedgerRepo *services.LedgerRepository

	log *zap.Logger
}

// New builds every service. The database is opened only for the db ledger
// source or when needDB is set (the ledger updater writes to it regardless).
func New(cfg config.Config, log *zap.Logger, needDB bool) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset catalog: %w", err)
	}

	a := &App{
		Config:  cfg,
		Catalog: catalog,
		DATCO:   cfg.DATCOWhitelist(),
		log:     log,
	}

	sheetClient := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.SpreadsheetID, cfg.Sheets.APIKey, cfg.Sheets.Timeout)

	a.Market = services.NewCoinGeckoService(catalog, services.CoinGeckoOptions{
		BaseURL:           cfg.Market.BaseURL,
		APIKey:            cfg.Market.APIKey,
		Timeout:           cfg.Market.Timeout,
		Attempts:          cfg.Market.Attempts,
		RetryDelay:        cfg.Market.RetryDelay,
		RequestsPerMinute: cfg.Market.RequestsPerMinute,
	}, log.Named("coingecko"))
	a.Store = services.NewPriceStore(cfg.Prices.StorePath, catalog)

	source := strings.ToLower(strings.TrimSpace(cfg.Prices.LedgerSource))
	if source == LedgerSourceDB || needDB {
		db, err := database.Open(cfg.DB.Path, log.Named("db"))
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.LedgerRepo = services.NewLedgerRepository(db)
	}

	var ledger services.LedgerSource
	switch source {
	case LedgerSourceSheet:
		ledger = services.NewSheetLedger(sheetClient, cfg.Sheets.LedgerRange, log.Named("ledger"))
	case LedgerSourceDB:
		ledger = a.LedgerRepo
	case LedgerSourceNone, "":
	default:
		a.Close()
		return nil, fmt.Errorf("unknown prices.ledger_source %q", cfg.Prices.LedgerSource)
	}

	a.Resolver = services.NewPriceResolver(catalog, ledger, a.Market, a.Store, services.PriceResolverOptions{
		CacheTTL:  cfg.Prices.CacheTTL,
		LedgerTTL: cfg.Prices.LedgerTTL,
	}, log.Named("prices"))

	holdings := services.NewHoldingsLoader(sheetClient, catalog, cfg.Sheets.HoldingsRange, cfg.Holdings.CacheTTL, log.Named("holdings"))
	historic := services.NewHistoricLoader(sheetClient, catalog, cfg.Sheets.HistoricRange, cfg.Historic.CacheTTL, log.Named("historic"))
	a.Snapshots = services.NewSnapshotService(holdings, a.Resolver, historic, services.NewHistoricSplicer(cfg.Historic.MinYear), log.Named("snapshot"))

	log.Info("services initialized",
		zap.Strings("assets", assetNames(catalog)),
		zap.String("ledger_source", source),
		zap.Bool("database", a.DB != nil),
	)
	return a, nil
}

// PriceWorker returns a ledger updater writing to the local database
func (a *App) PriceWorker() (*services.PriceWorker, error) {
	if a.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger updater needs the database; set prices.ledger_source=db or open it explicitly")
	}
	return services.NewPriceWorker(a.Catalog, a.Market, a.LedgerRepo, a.Config.LedgerUpdater.Source, a.log.Named("ledger_updater")), nil
}

func (a *App) Close() {
	if a.DB == nil {
		return
	}
	if err := database.Close(a.DB); err != nil {
		a.log.Warn("failed to close database", zap.Error(err))
	}
}

func assetNames(c *models.AssetCatalog) []string {
	out := make([]string, 0, len(c.Assets()))
	for _, a := range c.Assets() {
		out = append(out, string(a))
	}
	return out
}
