package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

func TestCommodityComposites(t *testing.T) {
	f := panel.NewFrame(dateIndex(3))
	f.SetColumn("WTI", series.FromValues([]float64{50, 52, 54}))
	f.SetColumn("BRENT", series.FromValues([]float64{55, 56, 57}))
	f.SetColumn("NATURAL_GAS", series.FromValues([]float64{2, 2.5, 2}))
	f.SetColumn("WHEAT", series.FromValues([]float64{500, 510, 520}))
	f.SetColumn("CORN", series.FromValues([]float64{300, 310, 320}))

	CommodityComposites(f, "fred_comm")

	spread, ok := f.Column("fred_comm_wti_brent_spread")
	require.True(t, ok)
	assert.InDelta(t, -5.0, spread[0], 1e-12)

	ratio, ok := f.Column("fred_comm_wti_gas_ratio")
	require.True(t, ok)
	assert.InDelta(t, 25.0, ratio[0], 1e-6)

	grain, ok := f.Column("fred_comm_grain_index")
	require.True(t, ok)
	assert.InDelta(t, 400.0, grain[0], 1e-12)

	wtiGrain, ok := f.Column("fred_comm_wti_grain_ratio")
	require.True(t, ok)
	assert.InDelta(t, 0.125, wtiGrain[0], 1e-6)
}

func TestCommodityCompositesGuarded(t *testing.T) {
	// Missing metrics silently skip their composites, never fail the run.
	f := panel.NewFrame(dateIndex(2))
	f.SetColumn("WTI", series.FromValues([]float64{50, 52}))
	f.SetColumn("CORN", series.FromValues([]float64{300, 310}))

	CommodityComposites(f, "fred_comm")

	_, ok := f.Column("fred_comm_wti_brent_spread")
	assert.False(t, ok)
	_, ok = f.Column("fred_comm_copper_aluminum_ratio")
	assert.False(t, ok)

	// Grain index works with a single available grain
	grain, ok := f.Column("fred_comm_grain_index")
	require.True(t, ok)
	assert.InDelta(t, 300.0, grain[0], 1e-12)

	_, ok = f.Column("fred_comm_wti_grain_ratio")
	assert.True(t, ok)
}

func TestEconomicComposites(t *testing.T) {
	f := panel.NewFrame(dateIndex(2))
	f.SetColumn("TREASURY_YIELD_10YEAR", series.FromValues([]float64{4.0, 4.1}))
	f.SetColumn("TREASURY_YIELD_2YEAR", series.FromValues([]float64{4.5, 4.4}))
	f.SetColumn("TREASURY_YIELD_3MONTH", series.FromValues([]float64{5.0, 5.0}))
	f.SetColumn("FEDERAL_FUNDS_RATE", series.FromValues([]float64{5.25, 5.25}))
	f.SetColumn("INFLATION", series.FromValues([]float64{3.0, 3.1}))
	f.SetColumn("UNEMPLOYMENT", series.FromValues([]float64{3.9, 4.0}))

	EconomicComposites(f, "fred_econ")

	spread103m, ok := f.Column("fred_econ_yield_spread_10y_3m")
	require.True(t, ok)
	assert.InDelta(t, -1.0, spread103m[0], 1e-12)

	spread102y, ok := f.Column("fred_econ_yield_spread_10y_2y")
	require.True(t, ok)
	assert.InDelta(t, -0.5, spread102y[0], 1e-12)

	realRate, ok := f.Column("fred_econ_real_rate")
	require.True(t, ok)
	assert.InDelta(t, 2.25, realRate[0], 1e-12)

	employment, ok := f.Column("fred_econ_employment_proxy")
	require.True(t, ok)
	assert.InDelta(t, 96.1, employment[0], 1e-12)
}

func TestEconomicCompositesGuarded(t *testing.T) {
	f := panel.NewFrame(dateIndex(2))
	f.SetColumn("UNEMPLOYMENT", series.FromValues([]float64{4.0, 4.1}))

	EconomicComposites(f, "fred_econ")

	_, ok := f.Column("fred_econ_yield_spread_10y_3m")
	assert.False(t, ok)
	_, ok = f.Column("fred_econ_real_rate")
	assert.False(t, ok)
	_, ok = f.Column("fred_econ_employment_proxy")
	assert.True(t, ok)
}
