package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/app"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed, and store the collected raw data",
	Long: `Index walks the data directory produced by the ingest command, splits
each file into sentence-aligned chunks, embeds them, and upserts them into
the knowledge base. Re-running is safe: chunks keep stable IDs, so changed
files update in place.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	result, err := a.Indexer.IndexDir(ctx, cfg.Ingest.DataDir)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", cfg.Ingest.DataDir, err)
	}

	fmt.Printf("Indexed %d chunks from %d files in %s\n",
		result.ChunksIndexed, result.FilesProcessed, result.Duration.Round(10*time.Millisecond))
	if result.FilesFailed > 0 || result.ChunksFailed > 0 {
		fmt.Printf("Failures: %d files, %d chunks (see logs)\n",
			result.FilesFailed, result.ChunksFailed)
	}

	return nil
}
