package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

func dateIndex(n int) []time.Time {
	dates := make([]time.Time, n)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func linearFrame(n int) *panel.Frame {
	f := panel.NewFrame(dateIndex(n))
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	f.SetColumn("WTI", series.FromValues(values))
	return f
}

func TestDeriveMomentumClosedForm(t *testing.T) {
	// For v[t] = t (1-based), momentum over window w is w / (t - w).
	const n = 30
	const w = 5
	f := linearFrame(n)

	p := DefaultParams()
	p.MomentumHorizons = []int{w}
	DeriveMomentum(f, []string{"WTI"}, "fred_comm", p)

	mom, ok := f.Column("fred_comm_WTI_momentum_5d")
	require.True(t, ok)

	for i := w; i < n; i++ {
		tVal := float64(i + 1)
		want := float64(w) / (tVal - float64(w))
		assert.InDeltaf(t, want, mom[i], 1e-12, "row %d", i)
	}
	for i := 0; i < w; i++ {
		assert.False(t, series.Valid(mom[i]))
	}
}

func TestDeriveMomentumAverageFloor(t *testing.T) {
	f := linearFrame(30)

	p := DefaultParams()
	p.MomentumHorizons = []int{10}
	DeriveMomentum(f, []string{"WTI"}, "fred_comm", p)

	avg, ok := f.Column("fred_comm_WTI_momentum_avg_10d")
	require.True(t, ok)

	// The pct-change series starts at row 10; the rolling mean needs 5
	// observed points (10/2), so rows before 14 are missing.
	for i := 0; i < 14; i++ {
		assert.Falsef(t, series.Valid(avg[i]), "row %d below observed-count floor", i)
	}
	assert.True(t, series.Valid(avg[14]))
}

func TestDeriveVolatility(t *testing.T) {
	f := linearFrame(80)

	p := DefaultParams()
	DeriveVolatility(f, []string{"WTI"}, "fred_comm", p)

	for _, name := range []string{
		"fred_comm_WTI_volatility_21d",
		"fred_comm_WTI_volatility_63d",
	} {
		col, ok := f.Column(name)
		require.Truef(t, ok, "missing %s", name)
		assert.True(t, series.Valid(col[79]))
	}
}

func TestDeriveTrend(t *testing.T) {
	f := linearFrame(80)

	DeriveTrend(f, []string{"WTI"}, "fred_comm", DefaultParams())

	for _, name := range []string{
		"fred_comm_WTI_sma_5d",
		"fred_comm_WTI_sma_21d",
		"fred_comm_WTI_sma_63d",
		"fred_comm_WTI_sma_ratio_5_21",
		"fred_comm_WTI_sma_ratio_21_63",
		"fred_comm_WTI_trend_slope_21d",
		"fred_comm_WTI_trend_slope_63d",
	} {
		_, ok := f.Column(name)
		assert.Truef(t, ok, "missing %s", name)
	}

	// A linear series has unit slope everywhere the window is populated
	slope, _ := f.Column("fred_comm_WTI_trend_slope_21d")
	assert.InDelta(t, 1.0, slope[79], 1e-9)
}

func TestDeriveNoLookAhead(t *testing.T) {
	// Perturbing rows after t must not change any feature value at t.
	base := linearFrame(100)
	mutated := linearFrame(100)
	col, _ := mutated.Column("WTI")
	col[98] = 1e6
	col[99] = -1e6

	p := DefaultParams()
	p.NormWindow = 20
	p.NormMinPeriods = 10

	for _, f := range []*panel.Frame{base, mutated} {
		sources := f.Columns()
		DeriveMomentum(f, sources, "fred_comm", p)
		DeriveVolatility(f, sources, "fred_comm", p)
		DeriveTrend(f, sources, "fred_comm", p)
		Normalize(f, "fred_comm", p)
	}

	require.Equal(t, base.Columns(), mutated.Columns())
	for _, name := range base.Columns() {
		a, _ := base.Column(name)
		b, _ := mutated.Column(name)
		for i := 0; i < 98-63; i++ {
			if series.Valid(a[i]) || series.Valid(b[i]) {
				assert.Equalf(t, a[i], b[i], "column %s row %d changed after future mutation", name, i)
			}
		}
	}
}

func TestNormalizeNamingAndEligibility(t *testing.T) {
	f := linearFrame(40)

	p := DefaultParams()
	p.MomentumHorizons = []int{5}
	p.NormWindow = 10
	p.NormMinPeriods = 5
	DeriveMomentum(f, []string{"WTI"}, "fred_comm", p)
	Normalize(f, "fred_comm", p)

	_, ok := f.Column("fred_comm_WTI_momentum_5d_normalized")
	assert.True(t, ok)

	_, ok = f.Column("WTI_normalized")
	assert.False(t, ok, "unprefixed source columns are not normalized")
}

func TestNormalizeLowVarianceSubstitution(t *testing.T) {
	f := panel.NewFrame(dateIndex(20))
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 3.0
	}
	f.SetColumn("fred_econ_flat", series.FromValues(flat))

	p := DefaultParams()
	p.NormWindow = 10
	p.NormMinPeriods = 5
	Normalize(f, "fred_econ", p)

	norm, ok := f.Column("fred_econ_flat_normalized")
	require.True(t, ok)
	// Zero rolling std is substituted with 1.0, so the score is 0, not Inf
	assert.InDelta(t, 0.0, norm[19], 1e-12)
}
