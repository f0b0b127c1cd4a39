package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// UpsertDocumentParams carries one document row for insert-or-update.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// SearchDocumentsParams carries a vector search request.
// FilterMetadata is a JSONB containment filter; nil means unfiltered.
type SearchDocumentsParams struct {
	QueryEmbedding *pgvector.Vector
	FilterMetadata []byte
	ResultLimit    int
}

// SearchDocumentsRow is one vector search hit ordered by cosine distance.
type SearchDocumentsRow struct {
	ID        string
	Content   string
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
	Distance  float32
}

// SourceTypeCount is one row of the per-source-type breakdown.
type SourceTypeCount struct {
	SourceType string
	Count      int64
}

// Querier defines the database operations Store needs. The interface lives
// with its consumer so Store depends on an abstraction rather than on a
// concrete pool (same shape as http.RoundTripper, io.Reader).
type Querier interface {
	// UpsertDocument inserts or updates a document
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error

	// SearchDocuments performs vector search, optionally filtered by metadata
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error)

	// CountDocuments counts documents matching filter (nil filter = all)
	CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error)

	// CountBySourceType returns document counts grouped by metadata source_type
	CountBySourceType(ctx context.Context) ([]SourceTypeCount, error)

	// DeleteDocument deletes a document by ID
	DeleteDocument(ctx context.Context, id string) error
}

// Stats describes the contents of the knowledge store.
type Stats struct {
	TotalDocuments int64            `json:"total_documents"`
	BySourceType   map[string]int64 `json:"by_source_type"`
}

// Store manages knowledge documents with vector search capabilities.
// It handles embedding generation and vector similarity search using
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a new Store instance.
//
// Example (production):
//
//	store := knowledge.New(knowledge.NewPostgresQuerier(pool), embedder, logger)
//
// Example (testing with mocks):
//
//	store := knowledge.New(mockQuerier, mockEmbedder, nil)
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add adds a document to the knowledge store.
// The document's content is embedded with the configured embedder.
// Uses UPSERT (ON CONFLICT DO UPDATE) so re-ingesting the same ID updates
// the stored content instead of failing.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := pgtype.Timestamptz{
		Time:  doc.CreatedAt,
		Valid: !doc.CreatedAt.IsZero(),
	}

	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search on the knowledge store.
// It returns the nearest documents to the query ordered by cosine distance,
// closest first. The whole operation, embedding included, is bounded by the
// configured timeout (default 10s) so a slow vector scan cannot block the
// caller indefinitely.
//
// Example:
//
//	results, err := store.Search(ctx, "career change advice",
//	    knowledge.WithTopK(10),
//	    knowledge.WithFilter("source_type", "web"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	queryEmbedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// The filter is always produced by json.Marshal on a map[string]string
	// and applied through a parameterized JSONB @> containment, so user
	// input never reaches the SQL text.
	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: queryEmbedding,
		FilterMetadata: filterJSON,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of documents matching the given filter.
// A nil or empty filter counts all documents.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var filterJSON []byte
	if len(filter) > 0 {
		var err error
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal filter: %w", err)
		}
	}

	count, err := s.queries.CountDocuments(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit platforms.
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// Stats returns the total document count and a per-source-type breakdown.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.queries.CountDocuments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	byType, err := s.queries.CountBySourceType(ctx)
	if err != nil {
		return nil, fmt.Errorf("source type breakdown failed: %w", err)
	}

	stats := &Stats{
		TotalDocuments: total,
		BySourceType:   make(map[string]int64, len(byType)),
	}
	for _, row := range byType {
		stats.BySourceType[row.SourceType] = row.Count
	}
	return stats, nil
}

// Delete removes a document from the knowledge store.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", docID, err)
	}

	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// embed generates an embedding vector for a single piece of text.
func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	vec := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &vec, nil
}

// rowsToResults converts database rows to business model Results.
func (s *Store) rowsToResults(rows []SearchDocumentsRow) []Result {
	results := make([]Result, 0, len(rows))

	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: createdAt,
			},
			Distance: row.Distance,
		})
	}

	return results
}
