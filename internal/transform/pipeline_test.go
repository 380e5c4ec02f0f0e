package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/internal/panel"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildTimeSeriesFrameMomentumAcrossGap(t *testing.T) {
	// Two quotes one quarter apart. Densification fills the gap daily, so
	// the 63-day momentum at the second quote looks back onto the first.
	obs := []panel.Observation{
		{Metric: "WTI", Date: d("2020-01-01"), Value: 50},
		{Metric: "WTI", Date: d("2020-04-01"), Value: 55},
	}

	frame := BuildTimeSeriesFrame(obs, Commodities())

	require.Equal(t, 92, frame.NumRows())

	col, ok := frame.Column("fred_comm_WTI_momentum_63d")
	require.True(t, ok)

	last := frame.NumRows() - 1
	assert.True(t, frame.Dates()[last].Equal(d("2020-04-01")))
	assert.InDelta(t, 0.10, col[last], 1e-12)

	// Every fill-forward day before the jump has zero momentum once the
	// lookback is inside the filled region.
	assert.InDelta(t, 0.0, col[last-1], 1e-12)
}

func TestBuildTimeSeriesFrameAddsNormalizedColumns(t *testing.T) {
	obs := make([]panel.Observation, 0, 300)
	day := d("2020-01-01")
	for i := 0; i < 300; i++ {
		obs = append(obs, panel.Observation{
			Metric: "WTI",
			Date:   day.AddDate(0, 0, i),
			Value:  50 + float64(i%7),
		})
	}

	frame := BuildTimeSeriesFrame(obs, Commodities())

	_, ok := frame.Column("fred_comm_WTI_momentum_21d_normalized")
	assert.True(t, ok, "derived columns get a normalized variant")
	_, ok = frame.Column("WTI_normalized")
	assert.False(t, ok, "raw source columns are not normalized")
}

func TestBuildTimeSeriesFrameComposites(t *testing.T) {
	obs := []panel.Observation{
		{Metric: "WTI", Date: d("2021-03-01"), Value: 60},
		{Metric: "BRENT", Date: d("2021-03-01"), Value: 63},
		{Metric: "WTI", Date: d("2021-03-02"), Value: 61},
		{Metric: "BRENT", Date: d("2021-03-02"), Value: 65},
	}

	frame := BuildTimeSeriesFrame(obs, Commodities())

	col, ok := frame.Column("fred_comm_wti_brent_spread")
	require.True(t, ok)
	assert.InDelta(t, -3.0, col[0], 1e-12)
	assert.InDelta(t, -4.0, col[1], 1e-12)
}

func TestBuildEntityFrameRanks(t *testing.T) {
	q := []time.Time{d("2023-03-31"), d("2023-06-30"), d("2023-09-30"), d("2023-12-31")}
	var obs []panel.Observation
	for i, period := range q {
		obs = append(obs,
			panel.Observation{Entity: "AAA", EntityLabel: "Alpha Co", Metric: "totalRevenue", Date: period, Value: 100 + float64(i)*10},
			panel.Observation{Entity: "AAA", Metric: "grossProfit", Date: period, Value: 40 + float64(i)*4},
			panel.Observation{Entity: "BBB", EntityLabel: "Beta Co", Metric: "totalRevenue", Date: period, Value: 200},
			panel.Observation{Entity: "BBB", Metric: "grossProfit", Date: period, Value: 50},
		)
	}

	frame := BuildEntityFrame(obs, IncomeStatements())

	_, ok := frame.Column("fis_gross_margin")
	require.True(t, ok)
	_, ok = frame.Column("fis_gross_margin_rank")
	require.True(t, ok)

	rank, _ := frame.Column("fis_gross_margin_rank")
	for i := range rank {
		if math.IsNaN(rank[i]) {
			continue
		}
		assert.GreaterOrEqual(t, rank[i], 0.0)
		assert.LessOrEqual(t, rank[i], 1.0)
	}
}

func TestFeatureColumnsContract(t *testing.T) {
	names := []string{
		"WTI",
		"fred_comm_WTI",
		"fred_comm_WTI_momentum_21d",
		"fred_comm_WTI_momentum_21d_normalized",
		"fred_comm_wti_brent_spread",
		"fred_commodity_other", // prefix must match on the underscore boundary
		"totalRevenue",
	}

	got := FeatureColumns(names, "fred_comm")

	assert.Equal(t, []string{
		"fred_comm_WTI",
		"fred_comm_WTI_momentum_21d",
		"fred_comm_WTI_momentum_21d_normalized",
		"fred_comm_wti_brent_spread",
	}, got)
}

func TestFeatureColumnsDropsIntermediates(t *testing.T) {
	names := []string{
		"fis_gross_margin",
		"fis_gross_margin_winsor",
		"fis_gross_margin_zscore",
		"fis_gross_margin_rank",
	}

	got := FeatureColumns(names, "fis")

	assert.Equal(t, []string{"fis_gross_margin", "fis_gross_margin_rank"}, got)
}
