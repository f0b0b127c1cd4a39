// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.techmentor/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model name, temperature, max tokens, embedder
//   - RAG: chunking bounds, top-K, dynamic search toggle, prompt template
//   - Storage: PostgreSQL connection (see storage.go)
//   - Ingest: source URLs/paths for the data-collection commands (see ingest.go)
//   - Observability: OTLP trace export to a local agent
//
// Security: sensitive data (passwords) are never logged; config directory uses 0750 permissions.
// Validation: range checks in validation.go with clear error messages.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidChunking indicates the chunking bounds are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates top_k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidPromptTemplate indicates the prompt template is missing a placeholder.
	ErrInvalidPromptTemplate = errors.New("invalid prompt template")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// DefaultGeminiEmbedderModel is the default Gemini embedder model.
// text-embedding-004 produces 768-dimensional vectors, matching the
// pgvector schema in db/migrations.
const DefaultGeminiEmbedderModel = "text-embedding-004"

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama"
	ModelName     string  `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "gemini-2.5-flash", "llama3.3")
	Temperature   float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	ContextLength int     `mapstructure:"context_length" json:"context_length"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// RAG pipeline configuration
	ChunkSize      int `mapstructure:"chunk_size" json:"chunk_size"`             // Target chunk size in characters
	ChunkOverlap   int `mapstructure:"chunk_overlap" json:"chunk_overlap"`       // Overlap between chunks, in words
	MinChunkLength int `mapstructure:"min_chunk_length" json:"min_chunk_length"` // Minimum emitted chunk length in characters
	TopK           int `mapstructure:"top_k" json:"top_k"`

	DynamicSearchEnabled bool `mapstructure:"dynamic_search_enabled" json:"dynamic_search_enabled"`

	// MinRelevanceScore is loaded for forward compatibility but is NOT
	// consulted by the relevance gate, which is a document-count plus
	// total-length heuristic. See rag.Gate.
	MinRelevanceScore float64 `mapstructure:"min_relevance_score" json:"min_relevance_score"`

	// PromptTemplate, when set, must contain both {context} and {question}
	// placeholders; otherwise the built-in template is used.
	PromptTemplate string `mapstructure:"prompt_template" json:"prompt_template"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Web search and ingestion configuration (see ingest.go)
	Search  SearchConfig  `mapstructure:"search" json:"search"`
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`
	Ingest  IngestConfig  `mapstructure:"ingest" json:"ingest"`

	// HTTP API configuration (serve mode)
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Observability configuration
	Otel OtelConfig `mapstructure:"otel" json:"otel"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.techmentor/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".techmentor")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 512)
	v.SetDefault("context_length", 2048)
	v.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// RAG defaults
	v.SetDefault("chunk_size", 500)
	v.SetDefault("chunk_overlap", 50)
	v.SetDefault("min_chunk_length", 100)
	v.SetDefault("top_k", 5)
	v.SetDefault("dynamic_search_enabled", true)
	v.SetDefault("min_relevance_score", 0.6)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "techmentor")
	v.SetDefault("postgres_password", "techmentor_dev_password")
	v.SetDefault("postgres_db_name", "techmentor")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Web search defaults
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html")
	v.SetDefault("search.timeout_ms", 10000)
	v.SetDefault("search.extract_timeout_ms", 15000)

	// Scraper defaults
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 2000)
	v.SetDefault("scraper.timeout_ms", 30000)

	// Ingest defaults
	v.SetDefault("ingest.data_dir", "data/raw")
	v.SetDefault("ingest.max_videos_per_channel", 10)

	// Serve defaults
	v.SetDefault("listen_addr", ":8080")

	// Observability defaults
	v.SetDefault("otel.agent_host", "localhost:4318")
	v.SetDefault("otel.environment", "dev")
	v.SetDefault("otel.service_name", "techmentor")
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "TECHMENTOR_PROVIDER")
	mustBind("model_name", "TECHMENTOR_MODEL_NAME")
	mustBind("ollama_host", "TECHMENTOR_OLLAMA_HOST")
	mustBind("dynamic_search_enabled", "TECHMENTOR_DYNAMIC_SEARCH")
	mustBind("listen_addr", "TECHMENTOR_LISTEN_ADDR")
	mustBind("otel.enabled", "TECHMENTOR_OTEL_ENABLED")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// Secrets of 8 characters or fewer are fully masked to prevent
// substring matching attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// ModelInfo returns informational model parameters for display (stats command).
func (c *Config) ModelInfo() map[string]any {
	return map[string]any{
		"provider":       c.Provider,
		"model_name":     c.ModelName,
		"embedder_model": c.EmbedderModel,
		"temperature":    c.Temperature,
		"max_tokens":     c.MaxTokens,
		"context_length": c.ContextLength,
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
