package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx execution methods the querier needs.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresQuerier implements Querier with hand-written pgx queries against
// the documents table. Vector ordering uses the pgvector cosine distance
// operator, so lower distance means closer.
type PostgresQuerier struct {
	db DBTX
}

// NewPostgresQuerier creates a querier backed by the given pool or transaction.
func NewPostgresQuerier(db DBTX) *PostgresQuerier {
	return &PostgresQuerier{db: db}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata
`

// UpsertDocument inserts a document or replaces its content, embedding and
// metadata when the ID already exists. created_at is preserved on update.
func (q *PostgresQuerier) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	var createdAt any
	if arg.CreatedAt.Valid {
		createdAt = arg.CreatedAt
	}

	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, createdAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       (embedding <=> $1)::float4 AS distance
FROM documents
WHERE $2::jsonb IS NULL OR metadata @> $2::jsonb
ORDER BY embedding <=> $1
LIMIT $3
`

// SearchDocuments returns the nearest documents to the query embedding,
// optionally restricted to rows whose metadata contains FilterMetadata.
func (q *PostgresQuerier) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	// pgx needs a typed nil for the optional JSONB parameter.
	var filter any
	if len(arg.FilterMetadata) > 0 {
		filter = arg.FilterMetadata
	}

	rows, err := q.db.Query(ctx, searchDocumentsSQL,
		arg.QueryEmbedding, filter, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []SearchDocumentsRow
	for rows.Next() {
		var row SearchDocumentsRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.CreatedAt, &row.Distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	return results, nil
}

const countDocumentsSQL = `
SELECT count(*)
FROM documents
WHERE $1::jsonb IS NULL OR metadata @> $1::jsonb
`

// CountDocuments counts documents whose metadata contains filterMetadata.
// A nil filter counts every document.
func (q *PostgresQuerier) CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	var filter any
	if len(filterMetadata) > 0 {
		filter = filterMetadata
	}

	var count int64
	if err := q.db.QueryRow(ctx, countDocumentsSQL, filter).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

const countBySourceTypeSQL = `
SELECT COALESCE(metadata->>'source_type', 'unknown') AS source_type, count(*)
FROM documents
GROUP BY 1
ORDER BY 1
`

// CountBySourceType returns document counts grouped by the source_type
// metadata key. Documents without the key are grouped under "unknown".
func (q *PostgresQuerier) CountBySourceType(ctx context.Context) ([]SourceTypeCount, error) {
	rows, err := q.db.Query(ctx, countBySourceTypeSQL)
	if err != nil {
		return nil, fmt.Errorf("count by source type: %w", err)
	}
	defer rows.Close()

	var counts []SourceTypeCount
	for rows.Next() {
		var row SourceTypeCount
		if err := rows.Scan(&row.SourceType, &row.Count); err != nil {
			return nil, fmt.Errorf("scan source type row: %w", err)
		}
		counts = append(counts, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source type rows: %w", err)
	}

	return counts, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocument removes a document by ID. Deleting a missing ID is not an
// error.
func (q *PostgresQuerier) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.db.Exec(ctx, deleteDocumentSQL, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
