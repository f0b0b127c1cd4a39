package chunker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sourceFolders are the labeled input folders processed under the raw-data
// root. The folder name doubles as the chunk's source_type.
var sourceFolders = []string{"web", "pdf", "youtube"}

// sourcePrefix is the provenance line written by every ingestion adapter at
// the top of each raw text file.
const sourcePrefix = "Source:"

// BatchResult summarizes a ProcessDir run.
type BatchResult struct {
	FilesProcessed int
	FilesFailed    int
	Chunks         []Chunk
}

// ProcessDir walks the labeled source folders under root, chunks every .txt
// file, and returns all chunks. A leading "Source: <uri>" line, when present,
// is stripped from the body and stored in the chunk metadata.
//
// Per-file errors are logged and skipped; the batch continues. Only a failure
// to read the root itself is returned as an error.
func (c *Chunker) ProcessDir(root string, logger *slog.Logger) (*BatchResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("raw data root %q: %w", root, err)
	}

	result := &BatchResult{}

	for _, folder := range sourceFolders {
		dir := filepath.Join(root, folder)
		entries, err := os.ReadDir(dir)
		if err != nil {
			// Missing source folders are normal: not every adapter has run.
			logger.Debug("skipping source folder", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("reading raw file failed, skipping", "path", path, "error", err)
				result.FilesFailed++
				continue
			}

			source, body := ExtractSource(string(content))
			meta := Metadata{
				Source:     source,
				Filename:   entry.Name(),
				SourceType: folder,
				DocID:      folder + "_" + entry.Name(),
			}

			chunks := c.Chunk(body, meta)
			result.Chunks = append(result.Chunks, chunks...)
			result.FilesProcessed++

			logger.Info("processed raw file", "path", path, "chunks", len(chunks))
		}
	}

	return result, nil
}

// ExtractSource parses a leading "Source: <uri>" provenance line. When
// present it is stripped from the body and returned separately; otherwise
// the source is empty and the body is returned unchanged.
func ExtractSource(content string) (source, body string) {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], sourcePrefix) {
		source = strings.TrimSpace(strings.TrimPrefix(lines[0], sourcePrefix))
		body = strings.Join(lines[1:], "\n")
		return source, body
	}
	return "", content
}
