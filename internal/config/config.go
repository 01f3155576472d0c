package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	DB            DBConfig            `mapstructure:"db"`
	Sheets        SheetsConfig        `mapstructure:"sheets"`
	Market        MarketConfig        `mapstructure:"market"`
	Prices        PricesConfig        `mapstructure:"prices"`
	Holdings      HoldingsConfig      `mapstructure:"holdings"`
	Historic      HistoricConfig      `mapstructure:"historic"`
	LedgerUpdater LedgerUpdaterConfig `mapstructure:"ledger_updater"`
	Assets        []AssetConfig       `mapstructure:"assets"`

	// DATCO maps an asset symbol to the entity names counted as digital asset treasury companies.
	DATCO map[string][]string `mapstructure:"datco"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr    string   `mapstructure:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Service           string `mapstructure:"service"`
	Output            string `mapstructure:"output"`
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SheetsConfig points at the spreadsheet holding the holdings, historic and ledger tabs.
// Range templates take the lower-case asset symbol as their only verb.
type SheetsConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	SpreadsheetID string        `mapstructure:"spreadsheet_id"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	HoldingsRange string        `mapstructure:"holdings_range"`
	HistoricRange string        `mapstructure:"historic_range"`
	LedgerRange   string        `mapstructure:"ledger_range"`
}

type MarketConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Attempts          int           `mapstructure:"attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type PricesConfig struct {
	StorePath    string        `mapstructure:"store_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	LedgerTTL    time.Duration `mapstructure:"ledger_ttl"`
	LedgerSource string        `mapstructure:"ledger_source"` // "sheet", "db" or "none"
}

type HoldingsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type HistoricConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	MinYear  int           `mapstructure:"min_year"`
}

type LedgerUpdaterConfig struct {
	Enabled  bool   `mapstructure:"enabled"` // run inside the server
	Schedule string `mapstructure:"schedule"`
	Source   string `mapstructure:"source"`
}

type AssetConfig struct {
	Symbol       string  `mapstructure:"symbol"`
	CoinGeckoID  string  `mapstructure:"coingecko_id"`
	DefaultPrice float64 `mapstructure:"default_price"`
	SupplyCap    float64 `mapstructure:"supply_cap"`
}

// Catalog builds the asset catalog, rejecting duplicate keys
func (c Config) Catalog() (*models.AssetCatalog, error) {
	specs := make([]models.AssetSpec, 0, len(c.Assets))
	for _, a := range c.Assets {
		specs = append(specs, models.AssetSpec{
			Symbol:       models.Asset(a.Symbol),
			CoinGeckoID:  a.CoinGeckoID,
			DefaultPrice: a.DefaultPrice,
			SupplyCap:    a.SupplyCap,
		})
	}
	catalog, err := models.NewAssetCatalog(specs)
	if err != nil {
		return nil, fmt.Errorf("invalid assets config: %w", err)
	}
	return catalog, nil
}

// DATCOWhitelist returns the configured whitelist keyed by normalized asset
func (c Config) DATCOWhitelist() map[models.Asset][]string {
	out := make(map[models.Asset][]string, len(c.DATCO))
	for k, names := range c.DATCO {
		out[models.NormalizeAsset(k)] = names
	}
	return out
}

func defaultAssets() []map[string]any {
	var out []map[string]any
	for _, s := range models.DefaultAssetSpecs() {
		out = append(out, map[string]any{
			"symbol":        string(s.Symbol),
			"coingecko_id":  s.CoinGeckoID,
			"default_price": s.DefaultPrice,
			"supply_cap":    s.SupplyCap,
		})
	}
	return out
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("log.service", "treasury-tracker")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.path", "./treasury_tracker.db")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.api_key", "")
	v.SetDefault("sheets.timeout", "8s")
	v.SetDefault("sheets.holdings_range", "aggregated_%s_data")
	v.SetDefault("sheets.historic_range", "historic_%s")
	v.SetDefault("sheets.ledger_range", "prices")
	v.SetDefault("market.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.api_key", "")
	v.SetDefault("market.timeout", "8s")
	v.SetDefault("market.attempts", 2)
	v.SetDefault("market.retry_delay", "2s")
	v.SetDefault("market.requests_per_minute", 30)
	v.SetDefault("prices.store_path", "data/last_prices.json")
	v.SetDefault("prices.cache_ttl", "1h")
	v.SetDefault("prices.ledger_ttl", "5m")
	v.SetDefault("prices.ledger_source", "sheet")
	v.SetDefault("holdings.cache_ttl", "15m")
	v.SetDefault("historic.cache_ttl", "15m")
	v.SetDefault("historic.min_year", 2024)
	v.SetDefault("ledger_updater.enabled", false)
	v.SetDefault("ledger_updater.schedule", "0 */10 * * * *")
	v.SetDefault("ledger_updater.source", "coingecko")
	v.SetDefault("assets", defaultAssets())
	v.SetDefault("datco", map[string][]string{
		"BTC": {"Strategy", "Metaplanet", "Twenty One Capital", "Semler Scientific", "The Blockchain Group", "Nakamoto"},
		"ETH": {"BitMine Immersion Technologies", "SharpLink Gaming", "The Ether Machine", "Bit Digital", "BTCS"},
		"SOL": {"Upexi", "DeFi Development", "Sol Strategies"},
	})

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
