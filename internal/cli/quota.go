package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show spend against the configured quota windows",
	RunE:  runQuota,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}

func runQuota(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	status, err := sys.gateway.CheckQuota(cmd.Context(), sys.quotaPolicy())
	if err != nil {
		return fmt.Errorf("check quota: %w", err)
	}

	fmt.Println("=== Quota Status ===")
	printWindow("Daily", status.DailyUsedUSD, status.DailyLimitUSD, status.DailyRemainingUSD, status.DailyWithinLimit)
	printWindow("Monthly", status.MonthlyUsedUSD, status.MonthlyLimitUSD, status.MonthlyRemainingUSD, status.MonthlyWithinLimit)

	if !status.WithinLimits() {
		fmt.Println("\nNew calls will be refused until the window rolls over.")
	}
	return nil
}

func printWindow(name string, used, limit, remaining float64, within bool) {
	if limit <= 0 {
		fmt.Printf("%-8s $%.4f spent (no limit)\n", name+":", used)
		return
	}

	state := "OK"
	if !within {
		state = "EXCEEDED"
	}
	fmt.Printf("%-8s $%.4f of $%.2f (%.1f%%), $%.4f remaining [%s]\n",
		name+":", used, limit, used/limit*100, remaining, state)
}
