package jobs

import (
	"context"
	"fmt"

	"github.com/quantward/featurepipe/internal/extract"
	"github.com/quantward/featurepipe/internal/transform"
	"github.com/quantward/featurepipe/pkg/logger"
)

// CommodityRefreshJob extracts commodity series and rebuilds the commodity
// feature table.
type CommodityRefreshJob struct {
	extractor *extract.Extractor
	pipeline  *transform.Pipeline
	logger    *logger.Logger
}

// NewCommodityRefreshJob creates a new commodity refresh job.
func NewCommodityRefreshJob(e *extract.Extractor, p *transform.Pipeline, log *logger.Logger) *CommodityRefreshJob {
	return &CommodityRefreshJob{extractor: e, pipeline: p, logger: log}
}

// Name returns the job name
func (j *CommodityRefreshJob) Name() string {
	return "commodity_refresh"
}

// Schedule returns the cron schedule (every day at 6 AM, with seconds)
func (j *CommodityRefreshJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run executes the extract and transform chain.
func (j *CommodityRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled commodity refresh")

	if err := j.extractor.ExtractCommodities(ctx); err != nil {
		return fmt.Errorf("extract commodities: %w", err)
	}

	result, err := j.pipeline.Run(ctx, transform.Commodities())
	if err != nil {
		return fmt.Errorf("transform commodities: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rows":    result.Rows,
		"columns": len(result.Columns),
	}).Info("Scheduled commodity refresh completed")

	return nil
}

// EconomicRefreshJob extracts economic indicators and rebuilds the economic
// feature table.
type EconomicRefreshJob struct {
	extractor *extract.Extractor
	pipeline  *transform.Pipeline
	logger    *logger.Logger
}

// NewEconomicRefreshJob creates a new economic refresh job.
func NewEconomicRefreshJob(e *extract.Extractor, p *transform.Pipeline, log *logger.Logger) *EconomicRefreshJob {
	return &EconomicRefreshJob{extractor: e, pipeline: p, logger: log}
}

// Name returns the job name
func (j *EconomicRefreshJob) Name() string {
	return "economic_refresh"
}

// Schedule returns the cron schedule (every day at 6:30 AM, with seconds)
func (j *EconomicRefreshJob) Schedule() string {
	return "0 30 6 * * *"
}

// Run executes the extract and transform chain.
func (j *EconomicRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled economic refresh")

	if err := j.extractor.ExtractEconomic(ctx); err != nil {
		return fmt.Errorf("extract economic indicators: %w", err)
	}

	result, err := j.pipeline.Run(ctx, transform.EconomicIndicators())
	if err != nil {
		return fmt.Errorf("transform economic indicators: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rows":    result.Rows,
		"columns": len(result.Columns),
	}).Info("Scheduled economic refresh completed")

	return nil
}

// IncomeStatementRefreshJob extracts quarterly income statements for the
// configured symbols and refreshes the fundamental feature table. Filings
// move slowly, so it runs weekly.
type IncomeStatementRefreshJob struct {
	extractor *extract.Extractor
	pipeline  *transform.Pipeline
	symbols   []string
	logger    *logger.Logger
}

// NewIncomeStatementRefreshJob creates a new income statement refresh job.
func NewIncomeStatementRefreshJob(e *extract.Extractor, p *transform.Pipeline, symbols []string, log *logger.Logger) *IncomeStatementRefreshJob {
	return &IncomeStatementRefreshJob{extractor: e, pipeline: p, symbols: symbols, logger: log}
}

// Name returns the job name
func (j *IncomeStatementRefreshJob) Name() string {
	return "income_statement_refresh"
}

// Schedule returns the cron schedule (Mondays at 7 AM, with seconds)
func (j *IncomeStatementRefreshJob) Schedule() string {
	return "0 0 7 * * 1"
}

// Run executes the extract and transform chain.
func (j *IncomeStatementRefreshJob) Run(ctx context.Context) error {
	j.logger.WithField("symbols", len(j.symbols)).Info("Starting scheduled income statement refresh")

	if err := j.extractor.ExtractIncomeStatements(ctx, j.symbols); err != nil {
		return fmt.Errorf("extract income statements: %w", err)
	}

	result, err := j.pipeline.Run(ctx, transform.IncomeStatements())
	if err != nil {
		return fmt.Errorf("transform income statements: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rows":    result.Rows,
		"columns": len(result.Columns),
	}).Info("Scheduled income statement refresh completed")

	return nil
}
