package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/services"
)

type HistoricHandler struct {
	snapshots SnapshotProvider
}

func NewHistoricHandler(snapshots SnapshotProvider) *HistoricHandler {
	return &HistoricHandler{snapshots: snapshots}
}

// series builds the spliced monthly series. The historic tables are already
// aggregated per asset, so only the asset filter applies; the live point is
// taken from the unfiltered snapshot of the same assets.
func (h *HistoricHandler) series(c *gin.Context) ([]models.HistoricPoint, []models.Asset, bool) {
	snap, err := h.snapshots.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, nil, false
	}

	assets := queryAssets(c)
	current := snap.Filter(models.HoldingFilter{Assets: assets}).Holdings
	series := h.snapshots.Series(c.Request.Context(), current)

	if len(assets) == 0 {
		return series, nil, true
	}
	keep := make(map[models.Asset]bool, len(assets))
	for _, a := range assets {
		keep[a] = true
	}
	filtered := make([]models.HistoricPoint, 0, len(series))
	for _, p := range series {
		if keep[p.Asset] {
			filtered = append(filtered, p)
		}
	}
	return filtered, assets, true
}

func (h *HistoricHandler) GetSeries(c *gin.Context) {
	series, _, ok := h.series(c)
	if !ok {
		return
	}
	if series == nil {
		series = []models.HistoricPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

func (h *HistoricHandler) GetDecomposition(c *gin.Context) {
	series, _, ok := h.series(c)
	if !ok {
		return
	}
	rows := services.Decompose(series)
	if rows == nil {
		rows = []models.Decomposition{}
	}
	c.JSON(http.StatusOK, gin.H{"decomposition": rows})
}

func (h *HistoricHandler) GetSummary(c *gin.Context) {
	series, assets, ok := h.series(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.SummarizeHistoric(series, assets))
}
