// Package cmd implements the techmentor command-line interface.
//
// Commands mirror the pipeline stages: ingest collects raw data, index
// chunks and embeds it into the knowledge base, ask and serve answer
// questions against it.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "techmentor",
	Short: "TechMentor - RAG-powered career mentoring assistant",
	Long: `TechMentor answers technology-career questions from a local knowledge
base of scraped articles, PDFs, and video transcripts, falling back to live
web search when local knowledge is insufficient.

Typical workflow:
  techmentor ingest    Collect raw data from configured sources
  techmentor index     Chunk, embed, and store the collected data
  techmentor ask ...   Ask a question from the terminal
  techmentor serve     Run the HTTP API`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is the single entry point called from
// main; all command wiring lives in this package.
func Execute() error {
	slog.SetDefault(initLogger())
	return rootCmd.Execute()
}

// initLogger builds the process-wide logger. DEBUG in the environment (any
// value) enables debug-level logging; TECHMENTOR_LOG_JSON switches to JSON
// output for log aggregation.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("TECHMENTOR_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}

// loadConfig loads and validates configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// checkProviderEnv verifies provider credentials before any expensive setup.
// Only the gemini provider needs an API key; ollama talks to a local server.
func checkProviderEnv(cfg *config.Config) error {
	if cfg.Provider != config.ProviderGemini {
		return nil
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "The gemini provider requires an API key:")
	fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Get a key at: https://ai.google.dev/")
	fmt.Fprintln(os.Stderr, "Or switch providers: export TECHMENTOR_PROVIDER=ollama")

	return fmt.Errorf("GEMINI_API_KEY not set")
}
