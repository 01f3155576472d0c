package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

const (
	defaultTopN = 20
	maxTopN     = 500
)

// SnapshotProvider assembles the current priced holdings and their history
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*models.TreasurySnapshot, error)
	Series(ctx context.Context, current []models.ValuatedHolding) []models.HistoricPoint
}

// writeError maps domain errors onto status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrDegenerateDistribution):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrSourceUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// filteredSnapshot loads the snapshot and applies the asset, entity_type and
// country query filters. It writes the error response itself and returns nil
// on failure.
func filteredSnapshot(c *gin.Context, snapshots SnapshotProvider) *models.TreasurySnapshot {
	snap, err := snapshots.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil
	}
	return snap.Filter(holdingFilter(c))
}

func holdingFilter(c *gin.Context) models.HoldingFilter {
	f := models.HoldingFilter{
		Assets:  queryAssets(c),
		Country: strings.TrimSpace(c.Query("country")),
	}
	if t := strings.TrimSpace(c.Query("entity_type")); t != "" && !strings.EqualFold(t, "all") {
		f.EntityType = models.ParseEntityType(t)
	}
	return f
}

// queryAssets accepts both ?asset=BTC&asset=ETH and ?asset=BTC,ETH
func queryAssets(c *gin.Context) []models.Asset {
	var out []models.Asset
	for _, v := range c.QueryArray("asset") {
		for _, part := range strings.Split(v, ",") {
			if a := models.NormalizeAsset(part); a != "" && !strings.EqualFold(string(a), "all") {
				out = append(out, a)
			}
		}
	}
	return out
}

// queryTopN reads top_n, bounded to [1, maxTopN]
func queryTopN(c *gin.Context, def int) (int, bool) {
	raw := c.Query("top_n")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxTopN {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top_n must be an integer between 1 and 500"})
		return 0, false
	}
	return n, true
}

func queryGroupBy(c *gin.Context) (models.GroupBy, bool) {
	g, ok := models.ParseGroupBy(c.Query("group_by"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_by must be one of entity, country, entity_type"})
	}
	return g, ok
}

// queryMeasure reads the measure named by key: usd (default) or units
func queryMeasure(c *gin.Context, key string) (models.Measure, bool) {
	m, ok := models.ParseMeasure(c.Query(key))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be usd or units"})
	}
	return m, ok
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// queryFloat reads an optional float; nil when absent
func queryFloat(c *gin.Context, key string) (*float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a number"})
		return nil, false
	}
	return &v, true
}
