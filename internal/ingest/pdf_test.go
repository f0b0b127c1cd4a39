package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/techmentor-ai/techmentor/internal/log"
)

func TestPDFExtractor_MissingFileSkipped(t *testing.T) {
	extractor := NewPDFExtractor(t.TempDir(), log.NewNop())

	results, err := extractor.Extract([]string{"/nonexistent/guide.pdf"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("missing file must be skipped, got %d results", len(results))
	}
}

func TestPDFExtractor_MalformedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(broken, []byte("this is not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	extractor := NewPDFExtractor(dir, log.NewNop())

	results, err := extractor.Extract([]string{broken})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("malformed file must be skipped, got %d results", len(results))
	}
}

func TestPDFExtractor_EmptyInput(t *testing.T) {
	extractor := NewPDFExtractor(t.TempDir(), log.NewNop())

	results, err := extractor.Extract(nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
