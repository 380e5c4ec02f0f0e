package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [source]",
	Short: "Pull raw series from the Alpha Vantage API",
	Long: `Pulls raw observations into the source tables.

Sources:
  commodities       - daily commodity prices
  economic          - treasury yields and macro indicators
  income_statement  - quarterly income statements (needs --symbols or
                      ALPHAVANTAGE_SYMBOLS)
  all               - every source

Example:
  go run ./cmd/featurepipe extract commodities
  go run ./cmd/featurepipe extract income_statement --symbols IBM,AAPL
  go run ./cmd/featurepipe extract all`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractSymbols []string

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringSliceVar(&extractSymbols, "symbols", nil, "symbols to pull income statements for (overrides ALPHAVANTAGE_SYMBOLS)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	symbols := extractSymbols
	if len(symbols) == 0 {
		symbols = a.cfg.AlphaVantage.Symbols
	}

	switch args[0] {
	case "commodities":
		return a.extractor.ExtractCommodities(ctx)
	case "economic":
		return a.extractor.ExtractEconomic(ctx)
	case "income_statement":
		if len(symbols) == 0 {
			return fmt.Errorf("no symbols given: set --symbols or ALPHAVANTAGE_SYMBOLS")
		}
		return a.extractor.ExtractIncomeStatements(ctx, symbols)
	case "all":
		if err := a.extractor.ExtractCommodities(ctx); err != nil {
			return err
		}
		if err := a.extractor.ExtractEconomic(ctx); err != nil {
			return err
		}
		if len(symbols) > 0 {
			return a.extractor.ExtractIncomeStatements(ctx, symbols)
		}
		return nil
	default:
		return fmt.Errorf("unknown source %q (valid: commodities, economic, income_statement, all)", args[0])
	}
}
