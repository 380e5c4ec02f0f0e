package alphavantage

import "time"

// seriesResponse is the wire shape shared by the commodity and economic
// indicator endpoints.
type seriesResponse struct {
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Unit     string `json:"unit"`
	Data     []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"data"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// incomeStatementResponse is the wire shape of the INCOME_STATEMENT
// endpoint. Every line item comes back as a string, so reports are decoded
// as raw maps and parsed afterwards.
type incomeStatementResponse struct {
	Symbol           string              `json:"symbol"`
	QuarterlyReports []map[string]string `json:"quarterlyReports"`
	Note             string              `json:"Note"`
	Information      string              `json:"Information"`
	ErrorMessage     string              `json:"Error Message"`
}

// Point is one dated observation of a series.
type Point struct {
	Date  time.Time
	Value float64
}

// SeriesData is a parsed commodity or economic indicator series. Points
// the API marks as missing (value ".") are dropped during parsing.
type SeriesData struct {
	Name     string
	Interval string
	Unit     string
	Points   []Point
}

// Report is one quarterly income statement with its numeric line items.
// Items the filing omits or reports as "None" are absent from the map.
type Report struct {
	FiscalDateEnding time.Time
	Currency         string
	Items            map[string]float64
}

// IncomeStatementData holds the parsed quarterly history for one symbol.
type IncomeStatementData struct {
	Symbol  string
	Reports []Report
}
