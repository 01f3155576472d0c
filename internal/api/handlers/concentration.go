package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/analytics"
)

type ConcentrationHandler struct {
	snapshots SnapshotProvider
}

func NewConcentrationHandler(snapshots SnapshotProvider) *ConcentrationHandler {
	return &ConcentrationHandler{snapshots: snapshots}
}

// GetConcentration returns Top-N share, HHI, Gini and the Lorenz curve of
// the holdings grouped by entity, country or entity type
func (h *ConcentrationHandler) GetConcentration(c *gin.Context) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return
	}
	topN, ok := queryTopN(c, analytics.DefaultTopN)
	if !ok {
		return
	}

	groupBy, ok := queryGroupBy(c)
	if !ok {
		return
	}
	measure, ok := queryMeasure(c, "measure")
	if !ok {
		return
	}

	dist := analytics.BuildDistribution(snap.Holdings, groupBy, measure)

	report, err := analytics.Analyze(dist, topN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
