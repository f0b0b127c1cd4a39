package config

// SearchConfig holds dynamic web-search configuration.
type SearchConfig struct {
	// BaseURL is the HTML search endpoint queried by websearch.Engine.
	// Defaults to the DuckDuckGo HTML endpoint; overridable for testing
	// or for pointing at a self-hosted metasearch instance.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// TimeoutMs bounds a single search request.
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// ExtractTimeoutMs bounds a single page-content fetch.
	ExtractTimeoutMs int `mapstructure:"extract_timeout_ms" json:"extract_timeout_ms"`
}

// ScraperConfig holds web-scraper configuration for the ingest command.
type ScraperConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 2000)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// IngestConfig lists the raw-data sources processed by the ingest command.
// Every adapter writes labeled .txt files under DataDir/<source_type>/ with
// a leading "Source: <uri>" provenance line consumed by the chunker.
type IngestConfig struct {
	DataDir             string   `mapstructure:"data_dir" json:"data_dir"`
	WebURLs             []string `mapstructure:"web_urls" json:"web_urls"`
	PDFPaths            []string `mapstructure:"pdf_paths" json:"pdf_paths"`
	YouTubeChannels     []string `mapstructure:"youtube_channels" json:"youtube_channels"`
	MaxVideosPerChannel int      `mapstructure:"max_videos_per_channel" json:"max_videos_per_channel"`
}

// OtelConfig holds OTLP trace-export configuration.
// Traces are exported to a local agent over OTLP HTTP; the agent handles
// authentication, buffering, and forwarding.
type OtelConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}
