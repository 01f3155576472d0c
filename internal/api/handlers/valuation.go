package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/models"
	"github.com/codyseavey/treasury-tracker/internal/services"
)

// default uniform price shock, -5%
const defaultShockPct = -5.0

type ValuationHandler struct {
	snapshots SnapshotProvider
	datco     map[models.Asset][]string
}

func NewValuationHandler(snapshots SnapshotProvider, datco map[models.Asset][]string) *ValuationHandler {
	return &ValuationHandler{
		snapshots: snapshots,
		datco:     datco,
	}
}

func (h *ValuationHandler) rows(c *gin.Context) ([]models.ValuatedHolding, bool) {
	snap := filteredSnapshot(c, h.snapshots)
	if snap == nil {
		return nil, false
	}
	if queryBool(c, "datco_only") {
		return services.FilterDATCO(snap.Holdings, h.datco), true
	}
	return snap.Holdings, true
}

// GetValuation returns entity snapshots, portfolio exposure and mNAV benchmarking
func (h *ValuationHandler) GetValuation(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}
	topN, ok := queryTopN(c, defaultTopN)
	if !ok {
		return
	}
	maxMNAV, ok := queryFloat(c, "max_mnav")
	if !ok {
		return
	}

	entities := services.EntitySnapshots(rows)
	benchmark, stats := services.MNAVBenchmark(entities, topN, maxMNAV)
	if entities == nil {
		entities = []models.EntitySnapshot{}
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":    services.SummarizeValuation(entities),
		"entities":   entities,
		"mnav":       benchmark,
		"mnav_stats": stats,
	})
}

// GetSensitivity estimates the equity impact of a price shock. Shocks are
// percentages: shock=-10 applies to every asset, shock_BTC=-20 to one asset.
func (h *ValuationHandler) GetSensitivity(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}
	topN, ok := queryTopN(c, defaultTopN)
	if !ok {
		return
	}

	shocks, ok := h.shocks(c, rows)
	if !ok {
		return
	}

	result := services.Sensitivity(services.EntitySnapshots(rows), shocks, topN)
	if result == nil {
		result = []models.SensitivityRow{}
	}

	pct := make(map[models.Asset]float64, len(shocks))
	for a, s := range shocks {
		pct[a] = s * 100
	}
	c.JSON(http.StatusOK, gin.H{
		"shocks_pct":  pct,
		"sensitivity": result,
	})
}

func (h *ValuationHandler) shocks(c *gin.Context, rows []models.ValuatedHolding) (map[models.Asset]float64, bool) {
	assets := make(map[models.Asset]bool)
	var present []models.Asset
	for _, r := range rows {
		if !assets[r.Asset] {
			assets[r.Asset] = true
			present = append(present, r.Asset)
		}
	}

	overrides := make(map[models.Asset]float64)
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, "shock_") || len(values) == 0 {
			continue
		}
		v, err := parseShock(values[0])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a percentage between -100 and 100"})
			return nil, false
		}
		overrides[models.NormalizeAsset(strings.TrimPrefix(key, "shock_"))] = v
	}
	if len(overrides) > 0 {
		return overrides, true
	}

	uniform := defaultShockPct / 100
	if raw := c.Query("shock"); raw != "" {
		v, err := parseShock(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shock must be a percentage between -100 and 100"})
			return nil, false
		}
		uniform = v
	}
	return services.UniformShock(present, uniform), true
}

// parseShock converts a percentage to a fraction
func parseShock(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < -100 || v > 100 {
		return 0, strconv.ErrRange
	}
	return v / 100, nil
}
