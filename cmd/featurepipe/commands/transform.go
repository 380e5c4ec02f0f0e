package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantward/featurepipe/internal/transform"
)

// transformCmd represents the transform command
var transformCmd = &cobra.Command{
	Use:   "transform [domain]",
	Short: "Rebuild feature tables from raw observations",
	Long: `Rebuilds the wide feature tables for one domain, or all of them.

Domains:
  commodities       - commodity prices (WTI, BRENT, metals, grains)
  economic          - treasury yields, rates, macro indicators
  income_statement  - quarterly fundamentals per symbol
  all               - every domain in sequence

Example:
  go run ./cmd/featurepipe transform commodities
  go run ./cmd/featurepipe transform all`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var domains []transform.Domain
	if args[0] == "all" {
		domains = transform.All()
	} else {
		d, err := transform.ByName(args[0])
		if err != nil {
			return err
		}
		domains = []transform.Domain{d}
	}

	for _, d := range domains {
		result, err := a.pipeline.Run(ctx, d)
		if err != nil {
			return fmt.Errorf("transform %s: %w", d.Name, err)
		}
		fmt.Printf("%s: %d rows, %d feature columns -> %s\n",
			result.Domain, result.Rows, len(result.Columns), d.TargetTable)
	}

	return nil
}
