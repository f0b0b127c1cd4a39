package knowledge

import "time"

// Source type constants for knowledge documents. The value doubles as the
// labeled folder name under the raw-data root.
const (
	// SourceTypeWeb represents scraped web articles.
	SourceTypeWeb = "web"

	// SourceTypePDF represents extracted PDF text.
	SourceTypePDF = "pdf"

	// SourceTypeYouTube represents video transcripts.
	SourceTypeYouTube = "youtube"
)

// Document represents a knowledge document.
// It contains the textual content and optional metadata.
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Document text content
	Metadata  map[string]string // Optional metadata (source, source_type, etc.)
	CreatedAt time.Time         // Creation timestamp
}

// Result represents a single search result with its vector distance.
type Result struct {
	Document Document
	Distance float32 // Cosine distance (0 = identical, 2 = opposite)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return.
// Default is 5 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds a metadata filter to restrict search results.
// Multiple calls to WithFilter add additional filters (AND logic).
// Example: WithFilter("source_type", "web")
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout bounds the search, embedding generation included.
// Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		filter:  nil,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
