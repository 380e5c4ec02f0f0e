package alphavantage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantward/featurepipe/pkg/config"
	"github.com/quantward/featurepipe/pkg/httputil"
	"github.com/quantward/featurepipe/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewWriter(io.Discard, "error")
	cfg := &config.Config{}
	cfg.AlphaVantage.APIKey = "testkey"
	cfg.AlphaVantage.BaseURL = server.URL
	cfg.AlphaVantage.RequestsPerMinute = 600

	return NewClient(cfg, httputil.New(log).DisableRetry(), log), server
}

func TestFetchCommodity(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"name": "Crude Oil Prices WTI",
			"interval": "daily",
			"unit": "dollars per barrel",
			"data": [
				{"date": "2024-01-03", "value": "72.70"},
				{"date": "2024-01-02", "value": "."},
				{"date": "2024-01-01", "value": "70.38"}
			]
		}`)
	})

	data, err := client.FetchCommodity(context.Background(), FunctionWTI)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "function=WTI")
	assert.Contains(t, gotQuery, "interval=daily")
	assert.Contains(t, gotQuery, "apikey=testkey")

	require.Len(t, data.Points, 2, "missing-value markers are dropped")
	assert.Equal(t, 72.70, data.Points[0].Value)
	assert.Equal(t, "2024-01-03", data.Points[0].Date.Format("2006-01-02"))
}

func TestFetchEconomicTreasuryMaturity(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"name": "10-Year Treasury", "interval": "daily", "data": []}`)
	})

	_, err := client.FetchEconomic(context.Background(), FunctionTreasuryYield, "10year")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "maturity=10year")
}

func TestFetchCommodityThrottled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Note": "API call frequency is 5 calls per minute"}`)
	})

	_, err := client.FetchCommodity(context.Background(), FunctionWTI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestFetchIncomeStatement(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"symbol": "IBM",
			"quarterlyReports": [
				{
					"fiscalDateEnding": "2023-12-31",
					"reportedCurrency": "USD",
					"totalRevenue": "17381000000",
					"grossProfit": "10291000000",
					"researchAndDevelopment": "None"
				},
				{
					"fiscalDateEnding": "not-a-date",
					"totalRevenue": "1"
				}
			]
		}`)
	})

	data, err := client.FetchIncomeStatement(context.Background(), "IBM")
	require.NoError(t, err)

	assert.Equal(t, "IBM", data.Symbol)
	require.Len(t, data.Reports, 1, "malformed reports are skipped")

	report := data.Reports[0]
	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, 17381000000.0, report.Items["totalRevenue"])
	_, hasRnD := report.Items["researchAndDevelopment"]
	assert.False(t, hasRnD, "None values are omitted")
}
