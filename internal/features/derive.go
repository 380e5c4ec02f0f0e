package features

import (
	"fmt"
	"strings"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

// DeriveMomentum adds, for every source column and horizon w, the percent
// change over w rows and the rolling mean of that series over the same
// window with an observed-count floor of w/2.
func DeriveMomentum(f *panel.Frame, sources []string, prefix string, p Params) {
	for _, name := range sources {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		for _, w := range p.MomentumHorizons {
			mom := col.PctChange(w)
			f.SetColumn(fmt.Sprintf("%s_%s_momentum_%dd", prefix, name, w), mom)
			f.SetColumn(fmt.Sprintf("%s_%s_momentum_avg_%dd", prefix, name, w),
				mom.Rolling(w, w/2).Mean())
		}
	}
}

// DeriveVolatility adds, for every source column, the rolling standard
// deviation of its daily-return series over each horizon. The return series
// is computed once per source and shared across horizons.
func DeriveVolatility(f *panel.Frame, sources []string, prefix string, p Params) {
	for _, name := range sources {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		ret := col.PctChange(1)
		for _, h := range p.VolatilityHorizons {
			f.SetColumn(fmt.Sprintf("%s_%s_volatility_%dd", prefix, name, h),
				ret.Rolling(h, h/2).Std())
		}
	}
}

// DeriveTrend adds simple moving averages, their ratios, and rolling OLS
// slopes for every source column. Ratios use the epsilon-perturbed divide so
// a zero denominator stays finite.
func DeriveTrend(f *panel.Frame, sources []string, prefix string, p Params) {
	for _, name := range sources {
		col, ok := f.Column(name)
		if !ok {
			continue
		}

		mas := make([]series.Series, len(p.TrendWindows))
		for i, tw := range p.TrendWindows {
			mas[i] = col.Rolling(tw.Window, tw.MinPeriods).Mean()
			f.SetColumn(fmt.Sprintf("%s_%s_sma_%dd", prefix, name, tw.Window), mas[i])
		}

		if len(p.TrendWindows) >= 3 {
			f.SetColumn(fmt.Sprintf("%s_%s_sma_ratio_%d_%d", prefix, name,
				p.TrendWindows[0].Window, p.TrendWindows[1].Window),
				series.DivEps(mas[0], mas[1]))
			f.SetColumn(fmt.Sprintf("%s_%s_sma_ratio_%d_%d", prefix, name,
				p.TrendWindows[1].Window, p.TrendWindows[2].Window),
				series.DivEps(mas[1], mas[2]))
		}

		for _, w := range p.SlopeWindows {
			f.SetColumn(fmt.Sprintf("%s_%s_trend_slope_%dd", prefix, name, w),
				col.Rolling(w, w/2).Slope())
		}
	}
}

// Normalize adds a leakage-free rolling z-score for every feature column
// carrying the domain prefix. The window is trailing and point-inclusive:
// row t standardizes against rows [t-W+1, t] only, so perturbing any row
// after t cannot move the score at t.
func Normalize(f *panel.Frame, prefix string, p Params) {
	marker := prefix + "_"
	for _, name := range f.Columns() {
		if !strings.HasPrefix(name, marker) {
			continue
		}
		col, _ := f.Column(name)
		f.SetColumn(name+"_normalized", col.Rolling(p.NormWindow, p.NormMinPeriods).ZScore())
	}
}
