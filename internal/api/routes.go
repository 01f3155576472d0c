package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/treasury-tracker/internal/api/handlers"
	"github.com/codyseavey/treasury-tracker/internal/models"
)

// Dependencies are the services the HTTP layer reads from
type Dependencies struct {
	Snapshots handlers.SnapshotProvider
	Prices    handlers.PriceResolver
	Ledger    handlers.LedgerHistory // optional
	Catalog   *models.AssetCatalog
	DATCO     map[models.Asset][]string
}

// snapshotClock is implemented by providers that remember their last assembly
type snapshotClock interface {
	LastSnapshot() time.Time
}

func SetupRouter(deps Dependencies, corsOrigins []string, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(observe(log.Named("http")))

	config := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		config.AllowOrigins = corsOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	priceHandler := handlers.NewPriceHandler(deps.Prices, deps.Ledger, deps.Catalog)
	holdingsHandler := handlers.NewHoldingsHandler(deps.Snapshots, deps.Catalog)
	valuationHandler := handlers.NewValuationHandler(deps.Snapshots, deps.DATCO)
	concentrationHandler := handlers.NewConcentrationHandler(deps.Snapshots)
	historicHandler := handlers.NewHistoricHandler(deps.Snapshots)

	api := router.Group("/api")
	{
		prices := api.Group("/prices")
		{
			prices.GET("", priceHandler.GetPrices)
			prices.GET("/:asset/history", priceHandler.GetPriceHistory)
		}

		api.GET("/holdings", holdingsHandler.GetHoldings)
		api.GET("/overview", holdingsHandler.GetOverview)
		api.GET("/breakdown", holdingsHandler.GetBreakdown)
		api.GET("/rankings", holdingsHandler.GetRankings)

		valuation := api.Group("/valuation")
		{
			valuation.GET("", valuationHandler.GetValuation)
			valuation.GET("/sensitivity", valuationHandler.GetSensitivity)
		}

		api.GET("/concentration", concentrationHandler.GetConcentration)

		historic := api.Group("/historic")
		{
			historic.GET("", historicHandler.GetSeries)
			historic.GET("/decomposition", historicHandler.GetDecomposition)
			historic.GET("/summary", historicHandler.GetSummary)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if clock, ok := deps.Snapshots.(snapshotClock); ok {
			if last := clock.LastSnapshot(); !last.IsZero() {
				body["last_snapshot"] = last
			}
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
