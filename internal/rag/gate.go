package rag

import "github.com/techmentor-ai/techmentor/internal/knowledge"

// Gate judges whether retrieved local content is sufficient to answer a
// question, deciding when the generator falls back to live web search.
//
// The heuristic is deliberately crude: it looks only at how many documents
// came back and how much text they carry, not at distances or semantic
// relevance. A richer judge (model-scored relevance, embedding comparison
// against the question) would slot in behind the same method.
type Gate struct {
	// MinDocs is the minimum number of retrieved documents.
	MinDocs int

	// MinTotalLength is the minimum combined content length in bytes.
	MinTotalLength int
}

// NewGate creates a gate with the default thresholds: at least two
// documents carrying at least 500 characters between them.
func NewGate() *Gate {
	return &Gate{
		MinDocs:        2,
		MinTotalLength: 500,
	}
}

// Relevant reports whether the retrieved documents are sufficient.
// All conditions must hold: results are non-empty, at least MinDocs
// documents came back, and their combined length reaches MinTotalLength.
func (g *Gate) Relevant(results []knowledge.Result) bool {
	if len(results) == 0 {
		return false
	}

	if len(results) < g.MinDocs {
		return false
	}

	total := 0
	for _, res := range results {
		total += len(res.Document.Content)
	}
	return total >= g.MinTotalLength
}
