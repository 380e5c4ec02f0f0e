package transform

import (
	"fmt"
	"strings"

	"github.com/quantward/featurepipe/internal/features"
	"github.com/quantward/featurepipe/internal/panel"
)

// Domain describes one feature domain as data: where its raw observations
// live, which prefix its outputs carry, and which cross-metric composites
// apply. The pipeline itself is shared; only the descriptor varies.
type Domain struct {
	Name        string
	Prefix      string
	SourceTable string
	TargetTable string

	// EntityKeyed selects the entity panel path (upsert keyed by
	// entity+period) instead of the date-indexed path (drop+recreate).
	EntityKeyed bool

	// Composites adds the domain's cross-metric features; nil for domains
	// without any.
	Composites func(*panel.Frame, string)

	Params features.Params
}

// Commodities returns the commodity domain descriptor.
func Commodities() Domain {
	return Domain{
		Name:        "commodities",
		Prefix:      "fred_comm",
		SourceTable: "raw_commodity_series",
		TargetTable: "commodity_features",
		Composites:  features.CommodityComposites,
		Params:      features.DefaultParams(),
	}
}

// EconomicIndicators returns the macro-indicator domain descriptor.
func EconomicIndicators() Domain {
	return Domain{
		Name:        "economic",
		Prefix:      "fred_econ",
		SourceTable: "raw_economic_series",
		TargetTable: "economic_features",
		Composites:  features.EconomicComposites,
		Params:      features.DefaultParams(),
	}
}

// IncomeStatements returns the income-statement domain descriptor.
func IncomeStatements() Domain {
	return Domain{
		Name:        "income_statement",
		Prefix:      "fis",
		SourceTable: "raw_income_statements",
		TargetTable: "income_statement_features",
		EntityKeyed: true,
		Params:      features.DefaultParams(),
	}
}

// All returns every registered domain.
func All() []Domain {
	return []Domain{Commodities(), EconomicIndicators(), IncomeStatements()}
}

// ByName looks up a domain descriptor by its name.
func ByName(name string) (Domain, error) {
	for _, d := range All() {
		if d.Name == name {
			return d, nil
		}
	}
	names := make([]string, 0, 3)
	for _, d := range All() {
		names = append(names, d.Name)
	}
	return Domain{}, fmt.Errorf("unknown domain %q (valid: %s)", name, strings.Join(names, ", "))
}
