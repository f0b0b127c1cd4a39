package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/ingest"
	"github.com/techmentor-ai/techmentor/internal/security"
)

var (
	ingestWeb     bool
	ingestPDF     bool
	ingestYouTube bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Collect raw data from the configured sources",
	Long: `Ingest collects raw text from the sources listed in the configuration:
web pages (scraped and cleaned), PDF documents, and YouTube channel
transcripts. Each source type writes labeled .txt files under its own
folder in the data directory, ready for the index command.

By default all configured source types run; --web, --pdf, and --youtube
restrict the run to the named types.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWeb, "web", false, "only scrape configured web URLs")
	ingestCmd.Flags().BoolVar(&ingestPDF, "pdf", false, "only extract configured PDF files")
	ingestCmd.Flags().BoolVar(&ingestYouTube, "youtube", false, "only fetch configured YouTube transcripts")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// No selector flags means everything.
	all := !ingestWeb && !ingestPDF && !ingestYouTube
	dataDir := cfg.Ingest.DataDir

	if (all || ingestWeb) && len(cfg.Ingest.WebURLs) > 0 {
		scraper := ingest.NewScraper(dataDir, cfg.Scraper, security.NewURL(), logger)
		results, err := scraper.Scrape(cfg.Ingest.WebURLs)
		if err != nil {
			return fmt.Errorf("scraping web sources: %w", err)
		}
		fmt.Printf("Web: %d of %d pages scraped\n", len(results), len(cfg.Ingest.WebURLs))
	}

	if (all || ingestPDF) && len(cfg.Ingest.PDFPaths) > 0 {
		extractor := ingest.NewPDFExtractor(dataDir, logger)
		results, err := extractor.Extract(cfg.Ingest.PDFPaths)
		if err != nil {
			return fmt.Errorf("extracting PDFs: %w", err)
		}
		fmt.Printf("PDF: %d of %d documents extracted\n", len(results), len(cfg.Ingest.PDFPaths))
	}

	if (all || ingestYouTube) && len(cfg.Ingest.YouTubeChannels) > 0 {
		fetcher := ingest.NewTranscriptFetcher(dataDir, cfg.Ingest, logger)
		results, err := fetcher.Fetch(ctx, cfg.Ingest.YouTubeChannels)
		if err != nil {
			return fmt.Errorf("fetching transcripts: %w", err)
		}
		fmt.Printf("YouTube: %d transcripts fetched from %d channels\n",
			len(results), len(cfg.Ingest.YouTubeChannels))
	}

	fmt.Printf("Raw data written under %s\n", dataDir)
	return nil
}
