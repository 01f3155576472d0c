package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/services"
)

type HoldingsHandler struct {
	snapshots SnapshotProvider
	catalog   *models.AssetCatalog
}

func NewHoldingsHandler(snapshots SnapshotProvider, catalog *models.AssetCatalog) *HoldingsHandler {
	return &HoldingsHandler{
		snapshots: snapshots,
		catalog:   catalog,
	}
}

// GetHoldings returns the valuated holdings table. round=true rounds values
// and ratios to two decimals.
func (h *HoldingsHandler) GetHoldings(c *gin.Context) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return
	}
	if snap.Holdings == nil {
		snap.Holdings = []models.ValuatedHolding{}
	}
	if queryBool(c, "round") {
		snap.Holdings = services.RoundForDisplay(snap.Holdings)
	}
	c.JSON(http.StatusOK, snap)
}

func (h *HoldingsHandler) GetOverview(c *gin.Context) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overview":     services.Overview(snap.Holdings, h.catalog),
		"prices":       snap.Prices,
		"assembled_at": snap.AssembledAt,
	})
}

// GetBreakdown groups USD by entity type and by country
func (h *HoldingsHandler) GetBreakdown(c *gin.Context) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return
	}

	vr := models.ValueRange(c.DefaultQuery("value_range", string(models.ValueRangeAll)))
	switch vr {
	case models.ValueRangeAll, models.ValueRangeUpTo100M, models.ValueRange100MTo1B, models.ValueRangeAbove1B:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "value_range must be one of All, 0-100M, 100M-1B, >1B"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"value_range": vr,
		"breakdown":   services.BreakdownByGroup(snap.Holdings, vr),
	})
}

// GetRankings returns the top entities by USD value or units
func (h *HoldingsHandler) GetRankings(c *gin.Context) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return
	}
	topN, ok := queryTopN(c, defaultTopN)
	if !ok {
		return
	}

	measure, ok := queryMeasure(c, "by")
	if !ok {
		return
	}

	rows, by := services.Rankings(snap.Holdings, measure, topN)
	if rows == nil {
		rows = []models.RankingRow{}
	}
	c.JSON(http.StatusOK, gin.H{
		"by":       by,
		"rankings": rows,
	})
}
