package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "featurepipe",
	Short: "Market feature transformation pipeline",
	Long: `featurepipe - market feature transformation pipeline

Extracts commodity, economic and income statement data, derives
momentum/volatility/trend features with leakage-free normalization,
and persists wide feature tables to PostgreSQL.

Usage:
  go run ./cmd/featurepipe [command]

Examples:
  go run ./cmd/featurepipe extract commodities
  go run ./cmd/featurepipe transform all
  go run ./cmd/featurepipe scheduler start
  go run ./cmd/featurepipe status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
