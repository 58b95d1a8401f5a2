package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yapay-ai/provider-sentinel/pkg/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate usage and cost reports",
	Long:  `Generate aggregated usage reports by provider, operation, and time period.`,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("period", "P", "daily", "Report period (daily, monthly)")
	reportCmd.Flags().StringP("provider", "p", "", "Filter by provider")
	reportCmd.Flags().StringP("operation", "o", "", "Filter by operation")
	reportCmd.Flags().StringP("model", "m", "", "Filter by model")
	reportCmd.Flags().Bool("detailed", false, "Show individual events")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	period, _ := cmd.Flags().GetString("period")
	providerFilter, _ := cmd.Flags().GetString("provider")
	operationFilter, _ := cmd.Flags().GetString("operation")
	modelFilter, _ := cmd.Flags().GetString("model")
	detailed, _ := cmd.Flags().GetBool("detailed")

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	window := model.PeriodWindow(model.Period(period))
	filter := model.ReportFilter{
		Provider:  providerFilter,
		Operation: operationFilter,
		Model:     modelFilter,
		StartTime: window.Start,
		EndTime:   window.End,
	}

	summary, err := sys.gateway.UsageSummary(cmd.Context(), window)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	fmt.Printf("=== Usage Report (%s) ===\n", period)
	fmt.Printf("Period: %s to %s\n\n", window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	fmt.Printf("Total Cost:   $%.4f\n", summary.TotalCostUSD)
	fmt.Printf("Total Units:  %d\n", summary.TotalUnits)
	fmt.Printf("Total Events: %d\n", summary.EventCount)

	if len(summary.ByProvider) > 0 {
		fmt.Printf("\nBy Provider:\n")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  PROVIDER\tCOST\tUNITS\tEVENTS\n")
		for name, b := range summary.ByProvider {
			fmt.Fprintf(w, "  %s\t$%.4f\t%d\t%d\n", name, b.CostUSD, b.Units, b.Events)
		}
		w.Flush()
	}

	if len(summary.ByOperation) > 0 {
		fmt.Printf("\nBy Operation:\n")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  OPERATION\tCOST\tUNITS\tEVENTS\n")
		for name, b := range summary.ByOperation {
			fmt.Fprintf(w, "  %s\t$%.4f\t%d\t%d\n", name, b.CostUSD, b.Units, b.Events)
		}
		w.Flush()
	}

	if detailed {
		events, err := sys.gateway.UsageEvents(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) > 0 {
			fmt.Printf("\nDetailed Events:\n")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "  TIMESTAMP\tPROVIDER\tOPERATION\tMODEL\tIN\tOUT\tCOST\n")
			for _, e := range events {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\t%d\t$%.6f\n",
					e.Timestamp.Format("2006-01-02 15:04"),
					e.Provider, e.Operation, e.Model,
					e.InputUnits, e.OutputUnits,
					e.CostUSD,
				)
			}
			w.Flush()
		}
	}

	return nil
}
