// Package chunker splits raw documents into overlapping, size-bounded text
// units with attached provenance metadata. Chunks are the atomic retrievable
// item of the knowledge base and are immutable once created.
package chunker

import (
	"strings"
	"unicode"
)

// Default chunking bounds, overridable via configuration.
const (
	DefaultChunkSize      = 500 // target chunk size in characters
	DefaultChunkOverlap   = 50  // overlap between consecutive chunks, in words
	DefaultMinChunkLength = 100 // minimum length of an emitted chunk in characters
)

// Metadata carries the provenance of a chunk. It is copied into every chunk
// emitted for a document and preserved verbatim by the vector store.
type Metadata struct {
	Source     string // origin URI, from the document's leading "Source:" line
	Filename   string
	SourceType string // labeled input folder: "web", "pdf", "youtube"
	DocID      string
}

// Chunk is a bounded unit of source text with provenance metadata.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// Chunker splits text into sentence-aligned chunks.
//
// Sentences are never split: a single sentence longer than ChunkSize is
// emitted whole, exceeding the size bound. Sentence atomicity wins over
// size strictness.
type Chunker struct {
	ChunkSize      int // close a chunk when appending would exceed this
	ChunkOverlap   int // words carried from a closed chunk into the next
	MinChunkLength int // chunks shorter than this are never emitted
}

// New creates a Chunker with the given bounds. Non-positive values fall back
// to the package defaults.
func New(chunkSize, chunkOverlap, minChunkLength int) *Chunker {
	c := &Chunker{
		ChunkSize:      chunkSize,
		ChunkOverlap:   chunkOverlap,
		MinChunkLength: minChunkLength,
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.MinChunkLength <= 0 {
		c.MinChunkLength = DefaultMinChunkLength
	}
	return c
}

// Chunk splits text into overlapping chunks with the receiver's bounds.
//
// The accumulating buffer is closed when appending the next sentence would
// exceed ChunkSize and the buffer already meets MinChunkLength; the next
// chunk is then seeded with the last ChunkOverlap words of the closed chunk
// followed by the sentence that triggered the split. A trailing buffer that
// never reaches MinChunkLength is silently dropped.
func (c *Chunker) Chunk(text string, meta Metadata) []Chunk {
	var chunks []Chunk

	sentences := splitSentences(text)
	current := ""

	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.ChunkSize && len(current) >= c.MinChunkLength {
			chunks = append(chunks, Chunk{
				Text:     strings.TrimSpace(current),
				Metadata: meta,
			})

			// Seed the next chunk with word-level overlap from the one
			// just closed.
			words := strings.Fields(current)
			overlap := ""
			if len(words) > c.ChunkOverlap {
				overlap = strings.Join(words[len(words)-c.ChunkOverlap:], " ")
			}
			current = overlap + " " + sentence
			continue
		}

		if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
	}

	// Flush the trailing buffer only if it meets the minimum bound;
	// short trailing fragments are dropped.
	if current != "" && len(current) >= c.MinChunkLength {
		chunks = append(chunks, Chunk{
			Text:     strings.TrimSpace(current),
			Metadata: meta,
		})
	}

	return chunks
}

// splitSentences splits text on sentence-terminal punctuation (. ! ?)
// followed by whitespace. The terminator stays attached to its sentence.
// RE2 has no lookbehind, so this is a plain scan rather than a regexp.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Terminator must be followed by whitespace (or end of text) to
		// count as a boundary; "3.5" or "e.g.x" are not boundaries.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}

		// Skip the whitespace run after the terminator.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		tail := strings.TrimSpace(string(runes[start:]))
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}

	return sentences
}
