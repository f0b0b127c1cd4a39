// Package rag implements the retrieval-augmented generation pipeline:
// retrieving local knowledge, judging its sufficiency, falling back to live
// web search, and generating the final answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// noInformationText is rendered when retrieval found nothing. It is display
// text only; sufficiency decisions use Context.Empty, never this string.
const noInformationText = "No relevant information found."

// Context is formatted local knowledge ready for prompt insertion.
// Empty reports that no documents backed it, so downstream logic branches on
// the flag instead of comparing display strings.
type Context struct {
	Text  string
	Empty bool
}

// String renders the prompt text for the context.
func (c Context) String() string {
	if c.Empty {
		return noInformationText
	}
	return c.Text
}

// Searcher is the slice of the knowledge store the retriever uses.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retriever fetches the most relevant local documents for a question.
type Retriever struct {
	store  Searcher
	topK   int
	logger *slog.Logger
}

// NewRetriever creates a retriever that returns up to topK documents.
func NewRetriever(store Searcher, topK int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 5
	}

	return &Retriever{
		store:  store,
		topK:   topK,
		logger: logger,
	}
}

// Retrieve returns the top-K nearest documents for the query, optionally
// post-filtered on metadata. A document passes the filter only when every
// filter key is present in its metadata with an exactly matching value;
// documents missing a filter key are dropped to avoid false positives.
// Result order is whatever the vector index returned, nearest first.
func (r *Retriever) Retrieve(ctx context.Context, query string, filters map[string]string) ([]knowledge.Result, error) {
	r.logger.Info("retrieving documents", "query", query)

	results, err := r.store.Search(ctx, query, knowledge.WithTopK(r.topK))
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}

	if len(filters) > 0 {
		filtered := results[:0]
		for _, res := range results {
			if metadataMatches(res.Document.Metadata, filters) {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}

	r.logger.Info("retrieved documents", "count", len(results))
	return results, nil
}

// metadataMatches reports whether metadata satisfies every filter entry.
func metadataMatches(metadata, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// FormatForPrompt renders retrieved documents into the fixed prompt layout:
// a header, then one numbered block per document with its text, an optional
// Source: line, and a rule between blocks.
func (r *Retriever) FormatForPrompt(results []knowledge.Result) Context {
	if len(results) == 0 {
		return Context{Empty: true}
	}

	var sb strings.Builder
	sb.WriteString("RELEVANT INFORMATION:\n\n")

	for i, res := range results {
		fmt.Fprintf(&sb, "[Document %d]\n", i+1)
		sb.WriteString(res.Document.Content)
		sb.WriteString("\n")

		if source := res.Document.Metadata["source"]; source != "" {
			fmt.Fprintf(&sb, "Source: %s\n", source)
		}

		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n\n")
	}

	return Context{Text: sb.String()}
}
