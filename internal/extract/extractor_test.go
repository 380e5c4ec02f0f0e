package extract

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/internal/alphavantage"
	"github.com/quantward/featurepipe/pkg/logger"
)

func TestLatestPoint(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	points := []alphavantage.Point{
		{Date: day("2024-01-05"), Value: 1},
		{Date: day("2024-02-01"), Value: 2},
		{Date: day("2024-01-20"), Value: 3},
	}
	assert.Equal(t, day("2024-02-01"), latestPoint(points))
	assert.True(t, latestPoint(nil).IsZero())
}

func TestEconomicSeriesMetricsDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, spec := range economicSeries {
		assert.False(t, seen[spec.Metric], "duplicate metric %s", spec.Metric)
		seen[spec.Metric] = true
	}

	// Treasury maturities map onto distinct stored metrics
	assert.True(t, seen["TREASURY_YIELD_10YEAR"])
	assert.True(t, seen["TREASURY_YIELD_2YEAR"])
	assert.True(t, seen["TREASURY_YIELD_3MONTH"])
}

func TestMetricListsMatchExtractionPlan(t *testing.T) {
	assert.Equal(t, len(commodityFunctions), len(CommodityMetrics()))
	assert.Contains(t, CommodityMetrics(), alphavantage.FunctionWTI)

	assert.Equal(t, len(economicSeries), len(EconomicMetrics()))
	assert.Contains(t, EconomicMetrics(), "TREASURY_YIELD_10YEAR")

	// Returned slices are copies; mutating one must not change the plan
	CommodityMetrics()[0] = "mutated"
	assert.Equal(t, alphavantage.FunctionWTI, commodityFunctions[0])
}

func TestAdvanceWatermarkSkipsEmptyRuns(t *testing.T) {
	// A run that produced no successful observations must leave the stored
	// watermark untouched. The store here has no pool, so any attempted
	// write would panic.
	e := New(NewStore(nil), nil, logger.NewWriter(io.Discard, "error"))

	require.NoError(t, e.advanceWatermark(context.Background(), "commodities", time.Time{}))
}
