package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/quantward/featurepipe/internal/alphavantage"
	"github.com/quantward/featurepipe/pkg/logger"
)

// commodityFunctions lists the commodity series pulled on every run.
var commodityFunctions = []string{
	alphavantage.FunctionWTI,
	alphavantage.FunctionBrent,
	alphavantage.FunctionNaturalGas,
	alphavantage.FunctionCopper,
	alphavantage.FunctionAluminum,
	alphavantage.FunctionWheat,
	alphavantage.FunctionCorn,
}

// economicSeries maps stored metric names onto API calls. Treasury yields
// share one function differentiated by maturity.
var economicSeries = []struct {
	Metric   string
	Function string
	Maturity string
}{
	{"TREASURY_YIELD_10YEAR", alphavantage.FunctionTreasuryYield, "10year"},
	{"TREASURY_YIELD_2YEAR", alphavantage.FunctionTreasuryYield, "2year"},
	{"TREASURY_YIELD_3MONTH", alphavantage.FunctionTreasuryYield, "3month"},
	{"FEDERAL_FUNDS_RATE", alphavantage.FunctionFederalFundsRate, ""},
	{"INFLATION", alphavantage.FunctionInflation, ""},
	{"UNEMPLOYMENT", alphavantage.FunctionUnemployment, ""},
	{"REAL_GDP", alphavantage.FunctionRealGDP, ""},
	{"CPI", alphavantage.FunctionCPI, ""},
}

// CommodityMetrics returns the metric names stored for the commodity domain.
func CommodityMetrics() []string {
	return append([]string(nil), commodityFunctions...)
}

// EconomicMetrics returns the metric names stored for the economic domain.
func EconomicMetrics() []string {
	names := make([]string, 0, len(economicSeries))
	for _, spec := range economicSeries {
		names = append(names, spec.Metric)
	}
	return names
}

// Extractor pulls raw series from the API and lands them in the source
// tables. One failed metric does not abort the others.
type Extractor struct {
	store  *Store
	client *alphavantage.Client
	logger *logger.Logger
}

// New creates a new extractor.
func New(store *Store, client *alphavantage.Client, log *logger.Logger) *Extractor {
	return &Extractor{store: store, client: client, logger: log}
}

// ExtractCommodities pulls every commodity series into raw_commodity_series.
func (e *Extractor) ExtractCommodities(ctx context.Context) error {
	var failed int
	var newest time.Time

	for _, function := range commodityFunctions {
		data, err := e.client.FetchCommodity(ctx, function)
		if err != nil {
			failed++
			e.logger.WithError(err).WithField("metric", function).Error("Commodity fetch failed")
			if markErr := e.store.MarkFailure(ctx, "raw_commodity_series", function, err); markErr != nil {
				e.logger.WithError(markErr).Warn("Failed to record failure marker")
			}
			continue
		}
		if err := e.store.SaveSeries(ctx, "raw_commodity_series", function, data); err != nil {
			return fmt.Errorf("save commodity %s: %w", function, err)
		}
		if last := latestPoint(data.Points); last.After(newest) {
			newest = last
		}
		e.logger.WithFields(map[string]interface{}{
			"metric": function,
			"points": len(data.Points),
		}).Info("Commodity series extracted")
	}

	if err := e.advanceWatermark(ctx, "commodities", newest); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}

	if failed == len(commodityFunctions) {
		return fmt.Errorf("all %d commodity fetches failed", failed)
	}
	return nil
}

// ExtractEconomic pulls every economic indicator into raw_economic_series.
func (e *Extractor) ExtractEconomic(ctx context.Context) error {
	var failed int
	var newest time.Time

	for _, spec := range economicSeries {
		data, err := e.client.FetchEconomic(ctx, spec.Function, spec.Maturity)
		if err != nil {
			failed++
			e.logger.WithError(err).WithField("metric", spec.Metric).Error("Economic fetch failed")
			if markErr := e.store.MarkFailure(ctx, "raw_economic_series", spec.Metric, err); markErr != nil {
				e.logger.WithError(markErr).Warn("Failed to record failure marker")
			}
			continue
		}
		if err := e.store.SaveSeries(ctx, "raw_economic_series", spec.Metric, data); err != nil {
			return fmt.Errorf("save economic %s: %w", spec.Metric, err)
		}
		if last := latestPoint(data.Points); last.After(newest) {
			newest = last
		}
		e.logger.WithFields(map[string]interface{}{
			"metric": spec.Metric,
			"points": len(data.Points),
		}).Info("Economic series extracted")
	}

	if err := e.advanceWatermark(ctx, "economic", newest); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}

	if failed == len(economicSeries) {
		return fmt.Errorf("all %d economic fetches failed", failed)
	}
	return nil
}

// ExtractIncomeStatements pulls quarterly income statements for the given
// symbols into raw_income_statements.
func (e *Extractor) ExtractIncomeStatements(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	var failed int
	var newest time.Time

	for _, symbol := range symbols {
		data, err := e.client.FetchIncomeStatement(ctx, symbol)
		if err != nil {
			failed++
			e.logger.WithError(err).WithField("symbol", symbol).Error("Income statement fetch failed")
			if markErr := e.store.MarkEntityFailure(ctx, symbol, err); markErr != nil {
				e.logger.WithError(markErr).Warn("Failed to record failure marker")
			}
			continue
		}
		if err := e.store.SaveIncomeStatement(ctx, symbol, data.Symbol, data.Reports); err != nil {
			return fmt.Errorf("save income statement %s: %w", symbol, err)
		}
		for _, report := range data.Reports {
			if report.FiscalDateEnding.After(newest) {
				newest = report.FiscalDateEnding
			}
		}
		e.logger.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"reports": len(data.Reports),
		}).Info("Income statements extracted")
	}

	if err := e.advanceWatermark(ctx, "income_statement", newest); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}

	if failed == len(symbols) {
		return fmt.Errorf("all %d income statement fetches failed", failed)
	}
	return nil
}

// advanceWatermark records run progress for a source. A run that produced no
// successful observations leaves the stored watermark untouched, so a fully
// failed run cannot wipe the high-water date it would otherwise overwrite
// with NULL.
func (e *Extractor) advanceWatermark(ctx context.Context, source string, newest time.Time) error {
	if newest.IsZero() {
		return nil
	}
	return e.store.SetWatermark(ctx, Watermark{
		Source:       source,
		LastObserved: newest,
		LastRun:      time.Now(),
	})
}

func latestPoint(points []alphavantage.Point) time.Time {
	var newest time.Time
	for _, p := range points {
		if p.Date.After(newest) {
			newest = p.Date
		}
	}
	return newest
}
