package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantward/featurepipe/internal/extract"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and extraction watermarks",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	fmt.Println("Database:")
	fmt.Printf("   Healthy: %t\n", health.Healthy)
	fmt.Printf("   Response Time: %s\n", health.ResponseTime)
	fmt.Printf("   Connections: %d/%d (idle: %d)\n",
		health.Stats.AcquiredConns, health.Stats.MaxConns, health.Stats.IdleConns)
	fmt.Println()

	fmt.Println("Extraction watermarks:")
	for _, source := range []string{"commodities", "economic", "income_statement"} {
		w, err := a.store.GetWatermark(ctx, source)
		if err != nil {
			return fmt.Errorf("get watermark %s: %w", source, err)
		}
		if w.LastRun.IsZero() {
			fmt.Printf("   %-18s never run\n", source)
			continue
		}
		observed := "n/a"
		if !w.LastObserved.IsZero() {
			observed = w.LastObserved.Format("2006-01-02")
		}
		fmt.Printf("   %-18s last run %s, newest observation %s\n",
			source, w.LastRun.Format("2006-01-02 15:04:05"), observed)
	}
	fmt.Println()

	fmt.Println("Series freshness:")
	if err := printSeriesFreshness(ctx, a, "raw_commodity_series", extract.CommodityMetrics()); err != nil {
		return err
	}
	if err := printSeriesFreshness(ctx, a, "raw_economic_series", extract.EconomicMetrics()); err != nil {
		return err
	}

	return nil
}

func printSeriesFreshness(ctx context.Context, a *app, table string, metrics []string) error {
	for _, metric := range metrics {
		latest, err := a.store.LatestObserved(ctx, table, metric)
		if err != nil {
			return fmt.Errorf("latest observed %s: %w", metric, err)
		}
		if latest.IsZero() {
			fmt.Printf("   %-24s no data\n", metric)
			continue
		}
		fmt.Printf("   %-24s %s\n", metric, latest.Format("2006-01-02"))
	}
	return nil
}
