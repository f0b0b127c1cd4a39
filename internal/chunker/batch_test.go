package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/techmentor-ai/techmentor/internal/log"
)

func TestExtractSource(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantSource string
		wantBody   string
	}{
		{
			name:       "leading source line stripped",
			content:    "Source: https://example.com/guide\n\nBody text here.",
			wantSource: "https://example.com/guide",
			wantBody:   "\nBody text here.",
		},
		{
			name:       "no source line",
			content:    "Just body text.",
			wantSource: "",
			wantBody:   "Just body text.",
		},
		{
			name:       "source line not first is kept in body",
			content:    "Intro.\nSource: https://example.com",
			wantSource: "",
			wantBody:   "Intro.\nSource: https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, body := ExtractSource(tt.content)
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestProcessDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "web"), 0o750); err != nil {
		t.Fatal(err)
	}

	body := strings.Repeat("A reasonably sized sentence with enough words to matter. ", 20)
	content := "Source: https://example.com/career\n\n" + body
	if err := os.WriteFile(filepath.Join(root, "web", "career.txt"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Non-txt files are ignored.
	if err := os.WriteFile(filepath.Join(root, "web", "notes.md"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := New(200, 10, 50)
	result, err := c.ProcessDir(root, log.NewNop())
	if err != nil {
		t.Fatalf("ProcessDir() error = %v", err)
	}

	if result.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1", result.FilesProcessed)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected chunks from web folder")
	}

	for i, ch := range result.Chunks {
		if ch.Metadata.Source != "https://example.com/career" {
			t.Errorf("chunk %d source = %q", i, ch.Metadata.Source)
		}
		if ch.Metadata.SourceType != "web" {
			t.Errorf("chunk %d source_type = %q, want web", i, ch.Metadata.SourceType)
		}
		if ch.Metadata.DocID != "web_career.txt" {
			t.Errorf("chunk %d doc_id = %q", i, ch.Metadata.DocID)
		}
		if strings.Contains(ch.Text, "Source:") {
			t.Errorf("chunk %d leaked the provenance line: %q", i, ch.Text)
		}
	}
}

func TestProcessDir_MissingRoot(t *testing.T) {
	c := New(200, 10, 50)
	if _, err := c.ProcessDir(filepath.Join(t.TempDir(), "absent"), log.NewNop()); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestProcessDir_EmptyFolders(t *testing.T) {
	root := t.TempDir()
	c := New(200, 10, 50)

	result, err := c.ProcessDir(root, log.NewNop())
	if err != nil {
		t.Fatalf("ProcessDir() error = %v", err)
	}
	if result.FilesProcessed != 0 || len(result.Chunks) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
