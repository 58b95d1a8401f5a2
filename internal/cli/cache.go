package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count, size, and hit rate",
	RunE:  runCacheStats,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	RunE:  runCacheCleanup,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	stats, err := sys.gateway.CacheStats()
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	fmt.Println("=== Cache Stats ===")
	fmt.Printf("Entries:    %d\n", stats.EntryCount)
	fmt.Printf("Total size: %s\n", humanBytes(stats.TotalSizeBytes))

	total := stats.HitCount + stats.MissCount
	if total > 0 {
		fmt.Printf("Hits:       %d\n", stats.HitCount)
		fmt.Printf("Misses:     %d\n", stats.MissCount)
		fmt.Printf("Hit rate:   %.1f%%\n", float64(stats.HitCount)/float64(total)*100)
	}
	return nil
}

func runCacheCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	removed, err := sys.gateway.CleanupExpired()
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	fmt.Printf("Removed %d expired entries.\n", removed)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
