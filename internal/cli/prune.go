package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old usage events from the ledger",
	Long:  `Delete usage events older than the given age. Aggregates for past windows change accordingly.`,
	RunE:  runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().String("older-than", "2160h", "Age threshold as a duration (default 90 days)")
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("older-than")
	olderThan, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse --older-than: %w", err)
	}

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	removed, err := sys.gateway.PruneUsage(cmd.Context(), olderThan)
	if err != nil {
		return fmt.Errorf("prune usage: %w", err)
	}

	fmt.Printf("Removed %d events older than %s.\n", removed, olderThan)
	return nil
}
