package features

import (
	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

// Cross-metric composites are guarded on column presence: a metric with no
// data this run silently skips the composites that reference it rather than
// failing the whole transform.

// CommodityComposites adds the inter-commodity spreads and ratios.
func CommodityComposites(f *panel.Frame, prefix string) {
	wti, hasWTI := f.Column("WTI")
	brent, hasBrent := f.Column("BRENT")
	gas, hasGas := f.Column("NATURAL_GAS")
	copper, hasCopper := f.Column("COPPER")
	aluminum, hasAluminum := f.Column("ALUMINUM")

	if hasWTI && hasBrent {
		f.SetColumn(prefix+"_wti_brent_spread", series.Sub(wti, brent))
	}
	if hasWTI && hasGas {
		f.SetColumn(prefix+"_wti_gas_ratio", series.DivEps(wti, gas))
	}
	if hasCopper && hasAluminum {
		f.SetColumn(prefix+"_copper_aluminum_ratio", series.DivEps(copper, aluminum))
	}

	var grains []series.Series
	if wheat, ok := f.Column("WHEAT"); ok {
		grains = append(grains, wheat)
	}
	if corn, ok := f.Column("CORN"); ok {
		grains = append(grains, corn)
	}
	if len(grains) > 0 {
		grainIndex := series.RowMean(grains...)
		f.SetColumn(prefix+"_grain_index", grainIndex)
		if hasWTI {
			f.SetColumn(prefix+"_wti_grain_ratio", series.DivEps(wti, grainIndex))
		}
	}
}

// EconomicComposites adds the yield-curve spreads and macro proxies.
func EconomicComposites(f *panel.Frame, prefix string) {
	y10, has10 := f.Column("TREASURY_YIELD_10YEAR")
	y2, has2 := f.Column("TREASURY_YIELD_2YEAR")
	y3m, has3m := f.Column("TREASURY_YIELD_3MONTH")

	if has10 && has3m {
		f.SetColumn(prefix+"_yield_spread_10y_3m", series.Sub(y10, y3m))
	}
	if has10 && has2 {
		f.SetColumn(prefix+"_yield_spread_10y_2y", series.Sub(y10, y2))
	}

	if ffr, ok := f.Column("FEDERAL_FUNDS_RATE"); ok {
		if inflation, ok := f.Column("INFLATION"); ok {
			// Real rate proxy
			f.SetColumn(prefix+"_real_rate", series.Sub(ffr, inflation))
		}
	}

	if unemployment, ok := f.Column("UNEMPLOYMENT"); ok {
		f.SetColumn(prefix+"_employment_proxy", series.SubScalar(100, unemployment))
	}
}
