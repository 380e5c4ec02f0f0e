package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantward/featurepipe/pkg/config"
	"github.com/quantward/featurepipe/pkg/httputil"
	"github.com/quantward/featurepipe/pkg/logger"
)

// Commodity functions supported by the API.
const (
	FunctionWTI        = "WTI"
	FunctionBrent      = "BRENT"
	FunctionNaturalGas = "NATURAL_GAS"
	FunctionCopper     = "COPPER"
	FunctionAluminum   = "ALUMINUM"
	FunctionWheat      = "WHEAT"
	FunctionCorn       = "CORN"
)

// Economic indicator functions.
const (
	FunctionRealGDP          = "REAL_GDP"
	FunctionTreasuryYield    = "TREASURY_YIELD"
	FunctionFederalFundsRate = "FEDERAL_FUNDS_RATE"
	FunctionCPI              = "CPI"
	FunctionInflation        = "INFLATION"
	FunctionUnemployment     = "UNEMPLOYMENT"
)

// Client handles communication with the Alpha Vantage API
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a new Alpha Vantage client. A local token-bucket
// limiter paces requests to the configured per-minute quota even when the
// shared Redis limiter is disabled.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	rpm := cfg.AlphaVantage.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.AlphaVantage.BaseURL,
		apiKey:     cfg.AlphaVantage.APIKey,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// FetchCommodity fetches the daily history of one commodity function.
func (c *Client) FetchCommodity(ctx context.Context, function string) (*SeriesData, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("interval", "daily")
	return c.fetchSeries(ctx, function, params)
}

// FetchEconomic fetches one economic indicator. maturity applies only to
// TREASURY_YIELD ("3month", "2year", "10year") and is ignored otherwise.
func (c *Client) FetchEconomic(ctx context.Context, function, maturity string) (*SeriesData, error) {
	params := url.Values{}
	params.Set("function", function)
	if function == FunctionTreasuryYield && maturity != "" {
		params.Set("interval", "daily")
		params.Set("maturity", maturity)
	}
	return c.fetchSeries(ctx, function, params)
}

// FetchIncomeStatement fetches the quarterly income statement history for
// one symbol.
func (c *Client) FetchIncomeStatement(ctx context.Context, symbol string) (*IncomeStatementData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "INCOME_STATEMENT")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	var resp incomeStatementResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/query?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch income statement %s: %w", symbol, err)
	}
	if err := apiError(resp.Note, resp.Information, resp.ErrorMessage); err != nil {
		return nil, err
	}

	data := &IncomeStatementData{Symbol: resp.Symbol}
	for _, raw := range resp.QuarterlyReports {
		report, err := parseReport(raw)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Skipping malformed quarterly report")
			continue
		}
		data.Reports = append(data.Reports, report)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"reports": len(data.Reports),
	}).Debug("Fetched income statement")

	return data, nil
}

func (c *Client) fetchSeries(ctx context.Context, function string, params url.Values) (*SeriesData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("apikey", c.apiKey)

	var resp seriesResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/query?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", function, err)
	}
	if err := apiError(resp.Note, resp.Information, resp.ErrorMessage); err != nil {
		return nil, err
	}

	data := &SeriesData{
		Name:     resp.Name,
		Interval: resp.Interval,
		Unit:     resp.Unit,
	}
	for _, p := range resp.Data {
		// "." marks a missing observation
		if p.Value == "" || p.Value == "." {
			continue
		}
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			continue
		}
		data.Points = append(data.Points, Point{Date: date, Value: value})
	}

	c.logger.WithFields(map[string]interface{}{
		"function": function,
		"points":   len(data.Points),
	}).Debug("Fetched series")

	return data, nil
}

func parseReport(raw map[string]string) (Report, error) {
	dateStr, ok := raw["fiscalDateEnding"]
	if !ok {
		return Report{}, fmt.Errorf("report missing fiscalDateEnding")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return Report{}, fmt.Errorf("parse fiscalDateEnding %q: %w", dateStr, err)
	}

	report := Report{
		FiscalDateEnding: date,
		Currency:         raw["reportedCurrency"],
		Items:            make(map[string]float64),
	}
	for key, value := range raw {
		if key == "fiscalDateEnding" || key == "reportedCurrency" {
			continue
		}
		if value == "" || value == "None" {
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		report.Items[key] = v
	}
	return report, nil
}

// apiError turns the API's soft failure envelope into an error. Alpha
// Vantage reports quota exhaustion and bad parameters inside a 200 body.
func apiError(note, information, errorMessage string) error {
	switch {
	case errorMessage != "":
		return fmt.Errorf("api error: %s", errorMessage)
	case note != "":
		return fmt.Errorf("api throttled: %s", note)
	case information != "":
		return fmt.Errorf("api notice: %s", information)
	}
	return nil
}
