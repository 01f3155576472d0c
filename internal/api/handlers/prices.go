package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// PriceResolver serves the current price resolution
type PriceResolver interface {
	Resolve(ctx context.Context) models.PriceResolution
}

// LedgerHistory reads recorded observations of one asset
type LedgerHistory interface {
	History(ctx context.Context, asset models.Asset, limit int) ([]models.LedgerEntry, error)
}

type PriceHandler struct {
	resolver PriceResolver
	ledger   LedgerHistory
	catalog  *models.AssetCatalog
}

// NewPriceHandler creates the handler. ledger may be nil when the price
// ledger lives in the spreadsheet rather than the local database.
func NewPriceHandler(resolver PriceResolver, ledger LedgerHistory, catalog *models.AssetCatalog) *PriceHandler {
	return &PriceHandler{
		resolver: resolver,
		ledger:   ledger,
		catalog:  catalog,
	}
}

// GetPrices returns one price per supported asset and the tier that served it
func (h *PriceHandler) GetPrices(c *gin.Context) {
	c.JSON(http.StatusOK, h.resolver.Resolve(c.Request.Context()))
}

// GetPriceHistory returns the most recent ledger rows of one asset
func (h *PriceHandler) GetPriceHistory(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "price ledger history is not available"})
		return
	}

	asset := models.NormalizeAsset(c.Param("asset"))
	if !h.catalog.Has(asset) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported asset"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := h.ledger.History(c.Request.Context(), asset, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":   asset,
		"entries": entries,
	})
}
