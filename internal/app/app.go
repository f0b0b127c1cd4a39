// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the database
// pool, the Genkit instance, the knowledge store, and the question-answering
// pipeline built on top of them. Setup constructs everything in dependency
// order; Close releases resources in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/rag"
	"github.com/techmentor-ai/techmentor/internal/websearch"
)

// App is the core application container.
type App struct {
	Config *config.Config

	// Core services
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store

	// Question-answering pipeline
	Retriever *rag.Retriever
	Search    *websearch.Engine
	Generator *rag.Generator
	Indexer   *rag.Indexer

	// Cleanup functions, executed in reverse order by Close.
	otelCleanup func()
	dbCleanup   func()

	logger *slog.Logger
}

// Close gracefully shuts down all resources in reverse initialization order:
// database pool first, then the tracer provider so shutdown itself is traced.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}

	return nil
}
