package features

import (
	"strings"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

// Alpha Vantage income-statement line items referenced by the ratio set.
// Pivoted column labels match these exactly (case-sensitive).
const (
	itemRevenue          = "totalRevenue"
	itemGrossProfit      = "grossProfit"
	itemOperatingIncome  = "operatingIncome"
	itemNetIncome        = "netIncome"
	itemEBIT             = "ebit"
	itemEBITDA           = "ebitda"
	itemSGA              = "sellingGeneralAndAdministrative"
	itemRnD              = "researchAndDevelopment"
	itemOperatingExpense = "operatingExpenses"
	itemInterestExpense  = "interestExpense"
	itemDebtExpense      = "interestAndDebtExpense"
	itemTaxExpense       = "incomeTaxExpense"
	itemPretaxIncome     = "incomeBeforeTax"
	itemContinuingOps    = "netIncomeFromContinuingOperations"
	itemDepreciation     = "depreciationAndAmortization"
	itemOtherNonOpIncome = "otherNonOperatingIncome"
)

// DeriveFundamentalRatios computes the per-entity, per-period ratio set over
// an income-statement panel. Every ratio uses the zero-fallback safe divide:
// a missing or zero denominator yields a literal 0.0, not an epsilon
// perturbation. That convention belongs to this domain only.
func DeriveFundamentalRatios(f *panel.EntityFrame, prefix string, p Params) {
	revenue := itemColumn(f, itemRevenue)
	netIncome := itemColumn(f, itemNetIncome)
	ebit := itemColumn(f, itemEBIT)

	// Margin ratios
	f.SetColumn(prefix+"_gross_margin", series.DivZero(itemColumn(f, itemGrossProfit), revenue))
	f.SetColumn(prefix+"_operating_margin", series.DivZero(itemColumn(f, itemOperatingIncome), revenue))
	f.SetColumn(prefix+"_net_margin", series.DivZero(netIncome, revenue))
	f.SetColumn(prefix+"_ebit_margin", series.DivZero(ebit, revenue))
	f.SetColumn(prefix+"_ebitda_margin", series.DivZero(itemColumn(f, itemEBITDA), revenue))

	// Expense ratios
	f.SetColumn(prefix+"_sga_ratio", series.DivZero(itemColumn(f, itemSGA), revenue))
	f.SetColumn(prefix+"_rnd_ratio", series.DivZero(itemColumn(f, itemRnD), revenue))
	f.SetColumn(prefix+"_opex_ratio", series.DivZero(itemColumn(f, itemOperatingExpense), revenue))

	// Leverage ratios
	f.SetColumn(prefix+"_interest_coverage", series.DivZero(ebit, itemColumn(f, itemInterestExpense)))
	f.SetColumn(prefix+"_debt_expense_ratio", series.DivZero(itemColumn(f, itemDebtExpense), revenue))

	// Tax and quality ratios
	f.SetColumn(prefix+"_effective_tax_rate",
		series.DivZero(itemColumn(f, itemTaxExpense), itemColumn(f, itemPretaxIncome)))
	f.SetColumn(prefix+"_continuing_ops_ratio",
		series.DivZero(itemColumn(f, itemContinuingOps), netIncome))

	// Period-over-period growth, computed within each entity
	f.SetColumn(prefix+"_revenue_growth", f.GroupApply(revenue, pctChange1))
	f.SetColumn(prefix+"_operating_income_growth",
		f.GroupApply(itemColumn(f, itemOperatingIncome), pctChange1))
	f.SetColumn(prefix+"_net_income_growth", f.GroupApply(netIncome, pctChange1))

	// Earnings-volatility proxy: rolling coefficient of variation of net
	// income over the trailing fiscal periods
	cvWindow := p.EarningsCVWindow
	f.SetColumn(prefix+"_earnings_volatility", f.GroupApply(netIncome, func(s series.Series) series.Series {
		std := s.Rolling(cvWindow, cvWindow/2).Std()
		mean := s.Rolling(cvWindow, cvWindow/2).Mean()
		return series.DivZero(std, mean)
	}))

	// Cash-flow proxies
	f.SetColumn(prefix+"_da_ratio", series.DivZero(itemColumn(f, itemDepreciation), revenue))
	f.SetColumn(prefix+"_other_income_ratio",
		series.DivZero(itemColumn(f, itemOtherNonOpIncome), revenue))
}

func pctChange1(s series.Series) series.Series {
	return s.PctChange(1)
}

// itemColumn returns the named line item or an all-missing series, so a
// line item absent from this run's source data degrades to 0.0 ratios
// instead of failing the transform.
func itemColumn(f *panel.EntityFrame, name string) series.Series {
	if col, ok := f.Column(name); ok {
		return col
	}
	return series.New(f.NumRows())
}

// NormalizeFundamentals runs the four-stage pipeline over every prefixed
// ratio column:
//
//  1. winsorize to the entity's own 5th/95th percentile bounds
//  2. rolling z-score over the trailing fiscal periods, within the entity
//  3. asinh of the z-score to compress tails symmetrically
//  4. percentile rank across all entities sharing the fiscal period
//
// Stage 4 is the only stage that mixes entities; it produces the
// peer-relative score. Stage 1 bounds are entity-local and all-time by
// default, which looks ahead within an entity's own history; setting
// Params.WinsorExpanding restricts the bounds to an expanding window.
// Intermediate _winsor/_zscore columns stay on the frame but are excluded
// from the output contract.
func NormalizeFundamentals(f *panel.EntityFrame, prefix string, p Params) {
	marker := prefix + "_"
	for _, name := range f.Columns() {
		if !strings.HasPrefix(name, marker) {
			continue
		}
		col, _ := f.Column(name)

		// Stage 1: winsorize within the entity
		winsor := f.GroupApply(col, func(s series.Series) series.Series {
			return winsorize(s, p)
		})
		f.SetColumn(name+"_winsor", winsor)

		// Stage 2 + 3: per-entity rolling z-score, then asinh
		zscore := f.GroupApply(winsor, func(s series.Series) series.Series {
			return s.Rolling(p.ZScoreWindow, p.ZScoreMinPeriods).ZScore().Asinh()
		})
		f.SetColumn(name+"_zscore", zscore)

		// Stage 4: cross-sectional percentile rank per fiscal period
		rank := series.New(f.NumRows())
		for _, idx := range f.PeriodGroups() {
			values := make([]float64, len(idx))
			for j, i := range idx {
				values[j] = zscore[i]
			}
			ranked := series.PercentileRank(values)
			for j, i := range idx {
				rank[i] = ranked[j]
			}
		}
		f.SetColumn(name+"_rank", rank)
	}
}

func winsorize(s series.Series, p Params) series.Series {
	if p.WinsorExpanding {
		lo := s.ExpandingQuantile(p.WinsorLower)
		hi := s.ExpandingQuantile(p.WinsorUpper)
		out := make(series.Series, len(s))
		for i, v := range s {
			out[i] = v
			if !series.Valid(v) {
				continue
			}
			if series.Valid(lo[i]) && v < lo[i] {
				out[i] = lo[i]
			}
			if series.Valid(hi[i]) && out[i] > hi[i] {
				out[i] = hi[i]
			}
		}
		return out
	}

	lo := s.Quantile(p.WinsorLower)
	hi := s.Quantile(p.WinsorUpper)
	if !series.Valid(lo) || !series.Valid(hi) {
		return s.Clone()
	}
	return s.Clip(lo, hi)
}

// IsIntermediate reports whether a column is a normalization intermediate
// that must never reach storage.
func IsIntermediate(name string) bool {
	return strings.HasSuffix(name, "_winsor") || strings.HasSuffix(name, "_zscore")
}
