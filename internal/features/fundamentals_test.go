package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

func quarter(year, q int) time.Time {
	return time.Date(year, time.Month(q*3), 31, 0, 0, 0, 0, time.UTC)
}

func incomeObs(entity string, q time.Time, items map[string]float64) []panel.Observation {
	var obs []panel.Observation
	for metric, value := range items {
		obs = append(obs, panel.Observation{
			Entity: entity,
			Metric: metric,
			Date:   q,
			Value:  value,
		})
	}
	return obs
}

func testIncomeFrame() *panel.EntityFrame {
	var obs []panel.Observation
	quarters := []time.Time{quarter(2020, 1), quarter(2020, 2), quarter(2020, 3), quarter(2020, 4)}
	for i, q := range quarters {
		rev := 100.0 + float64(i)*10
		obs = append(obs, incomeObs("IBM", q, map[string]float64{
			itemRevenue:         rev,
			itemGrossProfit:     rev * 0.4,
			itemOperatingIncome: rev * 0.2,
			itemNetIncome:       rev * 0.1,
			itemEBIT:            rev * 0.22,
			itemEBITDA:          rev * 0.3,
			itemInterestExpense: 5,
			itemTaxExpense:      rev * 0.03,
			itemPretaxIncome:    rev * 0.13,
		})...)
		obs = append(obs, incomeObs("AAPL", q, map[string]float64{
			itemRevenue:         rev * 5,
			itemGrossProfit:     rev * 5 * 0.45,
			itemOperatingIncome: rev * 5 * 0.3,
			itemNetIncome:       rev * 5 * 0.25,
			itemEBIT:            rev * 5 * 0.31,
			itemEBITDA:          rev * 5 * 0.35,
			itemInterestExpense: 2,
			itemTaxExpense:      rev * 5 * 0.04,
			itemPretaxIncome:    rev * 5 * 0.29,
		})...)
	}
	return panel.PivotEntities(obs)
}

func TestDeriveFundamentalRatios(t *testing.T) {
	f := testIncomeFrame()

	DeriveFundamentalRatios(f, "fis", DefaultParams())

	gross, ok := f.Column("fis_gross_margin")
	require.True(t, ok)
	keys := f.Keys()
	for i, k := range keys {
		if k.Entity == "IBM" {
			assert.InDelta(t, 0.4, gross[i], 1e-12)
		} else {
			assert.InDelta(t, 0.45, gross[i], 1e-12)
		}
	}

	coverage, ok := f.Column("fis_interest_coverage")
	require.True(t, ok)
	for i, k := range keys {
		if k.Entity == "IBM" && k.Period.Equal(quarter(2020, 1)) {
			assert.InDelta(t, 22.0/5.0, coverage[i], 1e-12)
		}
	}
}

func TestFundamentalRatiosZeroFallback(t *testing.T) {
	obs := incomeObs("X", quarter(2020, 1), map[string]float64{
		itemRevenue:     0,
		itemGrossProfit: 10,
	})
	f := panel.PivotEntities(obs)

	DeriveFundamentalRatios(f, "fis", DefaultParams())

	// Zero revenue falls back to a literal 0.0, not epsilon perturbation
	gross, _ := f.Column("fis_gross_margin")
	assert.Equal(t, 0.0, gross[0])

	// Absent line items degrade to 0.0 ratios rather than failing
	sga, _ := f.Column("fis_sga_ratio")
	assert.Equal(t, 0.0, sga[0])
}

func TestFundamentalGrowthIsPerEntity(t *testing.T) {
	f := testIncomeFrame()

	DeriveFundamentalRatios(f, "fis", DefaultParams())

	growth, ok := f.Column("fis_revenue_growth")
	require.True(t, ok)

	for i, k := range f.Keys() {
		if k.Period.Equal(quarter(2020, 1)) {
			assert.False(t, series.Valid(growth[i]), "first period has no base")
			continue
		}
		if k.Entity == "IBM" && k.Period.Equal(quarter(2020, 2)) {
			assert.InDelta(t, 0.10, growth[i], 1e-12)
		}
		if k.Entity == "AAPL" && k.Period.Equal(quarter(2020, 2)) {
			// Same relative growth as IBM, despite 5x the level
			assert.InDelta(t, 0.10, growth[i], 1e-12)
		}
	}
}

func TestEarningsVolatility(t *testing.T) {
	f := testIncomeFrame()

	p := DefaultParams()
	DeriveFundamentalRatios(f, "fis", p)

	cv, ok := f.Column("fis_earnings_volatility")
	require.True(t, ok)

	// With the 4-period window and floor 2, the second quarter onward has a
	// defined coefficient of variation
	for i, k := range f.Keys() {
		if k.Entity == "IBM" && k.Period.Equal(quarter(2020, 4)) {
			// Net income 10, 11, 12, 13: mean 11.5, sample std ~1.2910
			assert.InDelta(t, 1.2909944487358056/11.5, cv[i], 1e-9)
		}
	}
}

func TestNormalizeFundamentalsStages(t *testing.T) {
	f := testIncomeFrame()

	p := DefaultParams()
	DeriveFundamentalRatios(f, "fis", p)
	NormalizeFundamentals(f, "fis", p)

	// All three stage outputs exist for a ratio column
	for _, suffix := range []string{"_winsor", "_zscore", "_rank"} {
		_, ok := f.Column("fis_net_margin" + suffix)
		assert.Truef(t, ok, "missing stage column %s", suffix)
	}

	// Line items are not normalized
	_, ok := f.Column(itemRevenue + "_rank")
	assert.False(t, ok)
}

func TestNormalizeFundamentalsRankMixesEntities(t *testing.T) {
	// One improving entity, one deteriorating; the rank stage compares them
	// within each fiscal period, not within an entity's own history.
	var obs []panel.Observation
	rising := []float64{1, 2, 3, 4}
	falling := []float64{4, 3, 2, 1}
	for i := 0; i < 4; i++ {
		q := quarter(2020, i+1)
		obs = append(obs,
			panel.Observation{Entity: "UP", Metric: "fis_quality", Date: q, Value: rising[i]},
			panel.Observation{Entity: "DOWN", Metric: "fis_quality", Date: q, Value: falling[i]},
		)
	}
	f := panel.PivotEntities(obs)

	p := DefaultParams()
	p.ZScoreMinPeriods = 1
	NormalizeFundamentals(f, "fis", p)

	rank, ok := f.Column("fis_quality_rank")
	require.True(t, ok)

	for i, k := range f.Keys() {
		if k.Period.Equal(quarter(2020, 1)) {
			// Both z-scores are 0 at the first period: tied average rank
			assert.InDelta(t, 0.75, rank[i], 1e-12)
			continue
		}
		if k.Entity == "UP" {
			assert.InDelta(t, 1.0, rank[i], 1e-12)
		} else {
			assert.InDelta(t, 0.5, rank[i], 1e-12)
		}
	}
}

func TestWinsorizeExpandingMode(t *testing.T) {
	s := series.FromValues([]float64{1, 2, 3, 100})

	allTime := winsorize(s, Params{WinsorLower: 0.0, WinsorUpper: 0.5})
	// All-time bounds see the 100 outlier from the start
	assert.True(t, allTime[3] < 100)

	expanding := winsorize(s, Params{WinsorLower: 0.0, WinsorUpper: 0.5, WinsorExpanding: true})
	// At t=0 the expanding upper bound is 1 itself; no future values leak in
	assert.InDelta(t, 1.0, expanding[0], 1e-12)
}
