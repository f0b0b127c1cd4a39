package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base and model statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkProviderEnv(cfg); err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.Knowledge.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetching knowledge stats: %w", err)
	}

	fmt.Println("Knowledge base:")
	fmt.Printf("  Documents: %d\n", stats.TotalDocuments)

	// Stable ordering for repeated runs
	types := make([]string, 0, len(stats.BySourceType))
	for st := range stats.BySourceType {
		types = append(types, st)
	}
	sort.Strings(types)
	for _, st := range types {
		fmt.Printf("    %-8s %d\n", st, stats.BySourceType[st])
	}

	info := cfg.ModelInfo()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println("Model:")
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, info[k])
	}
	fmt.Printf("  dynamic_search: %t\n", cfg.DynamicSearchEnabled)

	return nil
}
