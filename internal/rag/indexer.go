package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/techmentor-ai/techmentor/internal/chunker"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// IndexerStore is the slice of the knowledge store the indexer uses.
type IndexerStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	FilesProcessed int
	FilesFailed    int
	ChunksIndexed  int
	ChunksFailed   int
	Duration       time.Duration
}

// Indexer chunks the raw-data folders and writes the chunks into the
// knowledge store.
type Indexer struct {
	store   IndexerStore
	chunker *chunker.Chunker
	logger  *slog.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(store IndexerStore, c *chunker.Chunker, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		store:   store,
		chunker: c,
		logger:  logger,
	}
}

// IndexDir chunks every labeled text file under root, normalizes the chunk
// text, and stores the result. Chunk IDs are <doc_id>_<ordinal>, so
// re-running over the same files updates documents in place instead of
// duplicating them. Per-chunk store failures are logged and counted, not
// fatal.
func (ix *Indexer) IndexDir(ctx context.Context, root string) (*IndexResult, error) {
	start := time.Now()

	batch, err := ix.chunker.ProcessDir(root, ix.logger)
	if err != nil {
		return nil, fmt.Errorf("chunking raw data: %w", err)
	}

	result := &IndexResult{
		FilesProcessed: batch.FilesProcessed,
		FilesFailed:    batch.FilesFailed,
	}

	ordinals := make(map[string]int, batch.FilesProcessed)
	for _, chunk := range batch.Chunks {
		ordinal := ordinals[chunk.Metadata.DocID]
		ordinals[chunk.Metadata.DocID] = ordinal + 1

		doc := knowledge.Document{
			ID:      fmt.Sprintf("%s_%d", chunk.Metadata.DocID, ordinal),
			Content: chunker.CleanText(chunk.Text),
			Metadata: map[string]string{
				"doc_id":      chunk.Metadata.DocID,
				"source":      chunk.Metadata.Source,
				"filename":    chunk.Metadata.Filename,
				"source_type": chunk.Metadata.SourceType,
			},
			CreatedAt: time.Now(),
		}

		if err := ix.store.Add(ctx, doc); err != nil {
			ix.logger.Error("storing chunk failed, skipping",
				"id", doc.ID, "error", err)
			result.ChunksFailed++
			continue
		}
		result.ChunksIndexed++
	}

	result.Duration = time.Since(start)
	ix.logger.Info("indexing complete",
		"files", result.FilesProcessed,
		"chunks", result.ChunksIndexed,
		"failed_chunks", result.ChunksFailed,
		"duration", result.Duration)

	return result, nil
}
